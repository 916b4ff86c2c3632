// Package directive defines the provider-neutral voice instruction set the
// dialogue engine produces. Rendering to Twilio markup lives in the twilioml
// package so the engine and composer stay free of provider types.
package directive

// Directive is one instruction for the telephony layer.
type Directive interface {
	voiceDirective()
}

// Speak reads text to the caller with a fixed voice and locale.
type Speak struct {
	Text   string
	Voice  string
	Locale string
}

// Gather collects a spoken utterance, transcribes it and posts the result to
// Action. Prompt is spoken before listening starts.
type Gather struct {
	Prompt        Speak
	Action        string
	Timeout       int
	SpeechTimeout string
	Locale        string // speech recognition locales, e.g. "en-US hi-IN"
	Hints         string
}

// Redirect tells the telephony layer to re-request instructions from URL.
type Redirect struct {
	URL string
}

// Hangup terminates the call.
type Hangup struct{}

func (Speak) voiceDirective()    {}
func (Gather) voiceDirective()   {}
func (Redirect) voiceDirective() {}
func (Hangup) voiceDirective()   {}

// Set is the ordered instruction sequence returned for one webhook event.
type Set []Directive

// EndsCall reports whether the set terminates the call.
func (s Set) EndsCall() bool {
	for _, d := range s {
		if _, ok := d.(Hangup); ok {
			return true
		}
	}
	return false
}

// Gathers reports whether the set asks the caller for another utterance.
func (s Set) Gathers() bool {
	for _, d := range s {
		if _, ok := d.(Gather); ok {
			return true
		}
	}
	return false
}
