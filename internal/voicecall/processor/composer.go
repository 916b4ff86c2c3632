package processor

import (
	"fmt"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/voicecall/directive"
)

const (
	voiceEnglish  = "Polly.Joanna"
	localeEnglish = "en-US"
	voiceHindi    = "Polly.Aditi"
	localeHindi   = "hi-IN"

	// Twilio speech recognition listens for both languages on every gather.
	gatherLocales = "en-US hi-IN"
	gatherTimeout = 5

	hintsName       = "my name is, I am, this is, नाम, मेरा नाम"
	hintsQualifying = "1BHK,2BHK,3BHK,budget,price,कीमत,बजट"
	hintsFreeform   = "sell, property, home, price, location, घर, संपत्ति, कीमत"
)

// ProjectDetails is the property context woven into the spoken prompts.
type ProjectDetails struct {
	CompanyName   string
	StartingPrice string
	UnitTypes     string
}

// Composer maps dialogue decisions to voice instruction sets. It holds only
// text templates and locale selection; no dialogue logic lives here.
type Composer struct {
	callbackURL string
	project     ProjectDetails
}

func NewComposer(callbackURL string, project ProjectDetails) *Composer {
	return &Composer{
		callbackURL: callbackURL,
		project:     project,
	}
}

// voiceFor picks the synthesis voice and locale for a language preference.
// BOTH speaks mixed text with the Hindi voice; a fixed tie-break kept from
// the system this replaces.
func voiceFor(pref callstore.Language) (string, string) {
	if pref == callstore.LanguageEnglish {
		return voiceEnglish, localeEnglish
	}
	return voiceHindi, localeHindi
}

func (c *Composer) speak(pref callstore.Language, text string) directive.Speak {
	voice, locale := voiceFor(pref)
	return directive.Speak{Text: text, Voice: voice, Locale: locale}
}

// gatherSet builds the standard continue-the-conversation shape: a gather
// with the spoken prompt, then a fallback speak plus redirect for the case
// where the gather times out on the telephony side.
func (c *Composer) gatherSet(pref callstore.Language, prompt, fallback, hints string) directive.Set {
	return directive.Set{
		directive.Gather{
			Prompt:        c.speak(pref, prompt),
			Action:        c.callbackURL,
			Timeout:       gatherTimeout,
			SpeechTimeout: "auto",
			Locale:        gatherLocales,
			Hints:         hints,
		},
		c.speak(pref, fallback),
		directive.Redirect{URL: c.callbackURL},
	}
}

// GreetingText is the first thing spoken on a call: the agent introduces
// itself and asks for the caller's name before any project details.
func (c *Composer) GreetingText(pref callstore.Language) string {
	switch pref {
	case callstore.LanguageEnglish:
		return fmt.Sprintf("Hello! This is your real estate advisor from %s. Before we begin, may I know your name?", c.project.CompanyName)
	case callstore.LanguageHindi:
		return fmt.Sprintf("नमस्ते! मैं %s से आपका रियल एस्टेट सलाहकार हूँ। शुरू करने से पहले, आपका नाम जान सकता हूँ?", c.project.CompanyName)
	default:
		return fmt.Sprintf("Hello! नमस्ते! I am your real estate advisor from %s. Before we begin, may I know your name?", c.project.CompanyName)
	}
}

// Greeting asks for the caller's name.
func (c *Composer) Greeting(pref callstore.Language) directive.Set {
	fallback := "If I didn't hear you, please tell me your name."
	if pref != callstore.LanguageEnglish {
		fallback = "I didn't hear you. Please tell me your name. मैंने नहीं सुना, कृपया अपना नाम बताइए।"
	}
	return c.gatherSet(pref, c.GreetingText(pref), fallback, hintsName)
}

// QualifyingText is the personalized prompt spoken right after the caller's
// name is captured.
func (c *Composer) QualifyingText(name string) string {
	return fmt.Sprintf("Nice to meet you, %s. We have %s homes with prices starting around %s. Do you prefer 1BHK, 2BHK or 3BHK, or a budget range?",
		name, c.project.UnitTypes, c.project.StartingPrice)
}

// Qualifying greets the caller by name and asks the first qualification question.
func (c *Composer) Qualifying(pref callstore.Language, name string) directive.Set {
	return c.gatherSet(pref, c.QualifyingText(name),
		"If I didn't hear you, please share your preferred configuration or budget.", hintsQualifying)
}

// Reply speaks an AI-generated answer and gathers the next utterance.
func (c *Composer) Reply(pref callstore.Language, text string) directive.Set {
	return c.gatherSet(pref, text, "Are you still there? क्या आप अभी भी हैं?", hintsFreeform)
}

// ApologyText is the fixed utterance substituted when the AI responder fails.
func (c *Composer) ApologyText(pref callstore.Language) string {
	if pref == callstore.LanguageEnglish {
		return "I'm having trouble right now. Please ask that once more."
	}
	return "I'm having trouble right now. Please ask that once more. मुझे अभी थोड़ी दिक्कत हो रही है, कृपया दोबारा पूछिए।"
}

// Apology keeps the conversation alive after a responder failure.
func (c *Composer) Apology(pref callstore.Language) directive.Set {
	return c.gatherSet(pref, c.ApologyText(pref), "Are you still there? क्या आप अभी भी हैं?", hintsFreeform)
}

// Reprompt asks the silent caller again without advancing the dialogue.
func (c *Composer) Reprompt(pref callstore.Language, stage callstore.Stage) directive.Set {
	if stage == callstore.StageIntro || stage == callstore.StageAwaitingName {
		return c.Greeting(pref)
	}
	return c.gatherSet(pref, "Are you still there? क्या आप अभी भी हैं?",
		"Sorry, I could not hear you.", hintsFreeform)
}

// FarewellText closes the call politely.
func (c *Composer) FarewellText(pref callstore.Language) string {
	switch pref {
	case callstore.LanguageEnglish:
		return "Thank you for calling! Have a great day!"
	case callstore.LanguageHindi:
		return "धन्यवाद और शुभ दिन!"
	default:
		return "Thank you for calling! Have a great day! धन्यवाद और शुभ दिन!"
	}
}

// Farewell speaks the goodbye and hangs up.
func (c *Composer) Farewell(pref callstore.Language) directive.Set {
	return directive.Set{
		c.speak(pref, c.FarewellText(pref)),
		directive.Hangup{},
	}
}

// ErrorFallback is the guaranteed-valid response for internal failures:
// apologize and end the call rather than leave the webhook unanswered.
func (c *Composer) ErrorFallback(pref callstore.Language) directive.Set {
	return directive.Set{
		c.speak(pref, "I'm sorry, an error occurred. Please try again later."),
		directive.Hangup{},
	}
}

// Acknowledged is returned for events that arrive after the call ended.
func (c *Composer) Acknowledged() directive.Set {
	return directive.Set{directive.Hangup{}}
}
