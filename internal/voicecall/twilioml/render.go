// Package twilioml renders a directive.Set into the TwiML document Twilio
// expects as a webhook response.
package twilioml

import (
	"fmt"
	"strconv"

	"github.com/twilio/twilio-go/twiml"

	"github.com/worthym330/voice-agent/internal/voicecall/directive"
)

// Render serializes the instruction set as a TwiML voice response.
func Render(set directive.Set) (string, error) {
	var verbs []twiml.Element
	for _, d := range set {
		switch d := d.(type) {
		case directive.Speak:
			verbs = append(verbs, say(d))
		case directive.Gather:
			verbs = append(verbs, &twiml.VoiceGather{
				Input:           "speech",
				Action:          d.Action,
				Method:          "POST",
				Timeout:         strconv.Itoa(d.Timeout),
				SpeechTimeout:   d.SpeechTimeout,
				Language:        d.Locale,
				Hints:           d.Hints,
				ProfanityFilter: "false",
				InnerElements:   []twiml.Element{say(d.Prompt)},
			})
		case directive.Redirect:
			verbs = append(verbs, &twiml.VoiceRedirect{
				Url:    d.URL,
				Method: "POST",
			})
		case directive.Hangup:
			verbs = append(verbs, &twiml.VoiceHangup{})
		default:
			return "", fmt.Errorf("unsupported directive type %T", d)
		}
	}
	return twiml.Voice(verbs)
}

func say(s directive.Speak) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  s.Text,
		Voice:    s.Voice,
		Language: s.Locale,
	}
}
