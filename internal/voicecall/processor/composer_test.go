package processor

import (
	"strings"
	"testing"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/voicecall/directive"
)

const testCallbackURL = "https://agent.example.com/api/callback/twilio/voice"

func newTestComposer() *Composer {
	return NewComposer(testCallbackURL, ProjectDetails{
		CompanyName:   "Sunrise Estates",
		StartingPrice: "₹55 lakhs",
		UnitTypes:     "1BHK–3BHK",
	})
}

func firstGather(t *testing.T, set directive.Set) directive.Gather {
	t.Helper()
	for _, d := range set {
		if g, ok := d.(directive.Gather); ok {
			return g
		}
	}
	t.Fatal("expected a gather directive in the set")
	return directive.Gather{}
}

func TestVoiceSelectionPerLanguage(t *testing.T) {
	c := newTestComposer()

	english := firstGather(t, c.Greeting(callstore.LanguageEnglish))
	if english.Prompt.Voice != "Polly.Joanna" || english.Prompt.Locale != "en-US" {
		t.Errorf("english voice = %s/%s, want Polly.Joanna/en-US", english.Prompt.Voice, english.Prompt.Locale)
	}

	hindi := firstGather(t, c.Greeting(callstore.LanguageHindi))
	if hindi.Prompt.Voice != "Polly.Aditi" || hindi.Prompt.Locale != "hi-IN" {
		t.Errorf("hindi voice = %s/%s, want Polly.Aditi/hi-IN", hindi.Prompt.Voice, hindi.Prompt.Locale)
	}

	// Bilingual text is spoken with the Hindi voice.
	both := firstGather(t, c.Greeting(callstore.LanguageBoth))
	if both.Prompt.Voice != "Polly.Aditi" || both.Prompt.Locale != "hi-IN" {
		t.Errorf("bilingual voice = %s/%s, want Polly.Aditi/hi-IN", both.Prompt.Voice, both.Prompt.Locale)
	}
	if !strings.Contains(both.Prompt.Text, "Hello!") || !strings.Contains(both.Prompt.Text, "नमस्ते") {
		t.Errorf("bilingual greeting should carry both languages, got %q", both.Prompt.Text)
	}
}

func TestEveryGatherCarriesFallbackAndRedirect(t *testing.T) {
	c := newTestComposer()

	sets := map[string]directive.Set{
		"greeting":   c.Greeting(callstore.LanguageBoth),
		"qualifying": c.Qualifying(callstore.LanguageBoth, "Ravi"),
		"reply":      c.Reply(callstore.LanguageBoth, "Prices start at 55 lakhs."),
		"apology":    c.Apology(callstore.LanguageBoth),
		"reprompt":   c.Reprompt(callstore.LanguageBoth, callstore.StageFreeform),
	}

	for name, set := range sets {
		if !set.Gathers() {
			t.Errorf("%s: expected a gather", name)
			continue
		}
		if len(set) != 3 {
			t.Errorf("%s: expected gather + fallback speak + redirect, got %d directives", name, len(set))
			continue
		}
		if _, ok := set[1].(directive.Speak); !ok {
			t.Errorf("%s: expected fallback speak after gather, got %T", name, set[1])
		}
		redirect, ok := set[2].(directive.Redirect)
		if !ok {
			t.Errorf("%s: expected trailing redirect, got %T", name, set[2])
			continue
		}
		if redirect.URL != testCallbackURL {
			t.Errorf("%s: redirect URL = %q, want %q", name, redirect.URL, testCallbackURL)
		}
	}
}

func TestGatherListensForBothLanguages(t *testing.T) {
	c := newTestComposer()
	g := firstGather(t, c.Greeting(callstore.LanguageEnglish))
	if g.Locale != "en-US hi-IN" {
		t.Errorf("gather locale = %q, want %q", g.Locale, "en-US hi-IN")
	}
	if g.Timeout != 5 || g.SpeechTimeout != "auto" {
		t.Errorf("gather timeouts = %d/%q, want 5/auto", g.Timeout, g.SpeechTimeout)
	}
	if g.Action != testCallbackURL {
		t.Errorf("gather action = %q, want %q", g.Action, testCallbackURL)
	}
}

func TestQualifyingPromptIsPersonalized(t *testing.T) {
	c := newTestComposer()
	text := c.QualifyingText("Ravi Kumar")
	if !strings.Contains(text, "Ravi Kumar") {
		t.Errorf("expected prompt to address the caller, got %q", text)
	}
	if !strings.Contains(text, "₹55 lakhs") {
		t.Errorf("expected prompt to carry the starting price, got %q", text)
	}
}

func TestFarewellEndsWithoutGather(t *testing.T) {
	c := newTestComposer()
	set := c.Farewell(callstore.LanguageBoth)
	if !set.EndsCall() {
		t.Error("farewell must hang up")
	}
	if set.Gathers() {
		t.Error("farewell must not gather further input")
	}
}
