package processor

import (
	"strings"

	"github.com/worthym330/voice-agent/internal/callstore"
)

// Classification is the tagged result of classifying one caller turn.
type Classification string

const (
	ClassificationNameCapture Classification = "name_capture"
	ClassificationTerminate   Classification = "terminate"
	ClassificationQuery       Classification = "query"
	ClassificationNoInput     Classification = "no_input"
)

// terminationKeywords end the call on exact substring containment against the
// lower-cased transcript. No fuzzy matching.
var terminationKeywords = []string{
	"goodbye",
	"bye",
	"end call",
	"hang up",
	"thank you bye",
	"that's all",
	"stop",
	// Hindi equivalents
	"अलविदा",
	"फिर मिलेंगे",
	"कॉल खत्म",
	"फोन रखो",
	"बंद करो",
	"बस इतना ही",
}

// Classify maps one transcribed utterance to a dialogue action. It is a pure
// function of the call's stage, whether a caller name has been captured, and
// the utterance text.
func Classify(stage callstore.Stage, callerName, utterance string) Classification {
	if strings.TrimSpace(utterance) == "" {
		return ClassificationNoInput
	}

	if callerName == "" && (stage == callstore.StageIntro || stage == callstore.StageAwaitingName) {
		return ClassificationNameCapture
	}

	lowered := strings.ToLower(utterance)
	for _, keyword := range terminationKeywords {
		if strings.Contains(lowered, keyword) {
			return ClassificationTerminate
		}
	}

	return ClassificationQuery
}

// ExtractName takes at most the first two whitespace tokens of the utterance
// as the caller's name, falling back to the raw trimmed utterance.
func ExtractName(utterance string) string {
	trimmed := strings.TrimSpace(utterance)
	parts := strings.Fields(trimmed)
	if len(parts) == 0 {
		return trimmed
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}
