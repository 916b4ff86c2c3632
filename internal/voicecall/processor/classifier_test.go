package processor

import (
	"testing"

	"github.com/worthym330/voice-agent/internal/callstore"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		stage      callstore.Stage
		callerName string
		utterance  string
		want       Classification
	}{
		{"empty utterance", callstore.StageFreeform, "Ravi", "", ClassificationNoInput},
		{"whitespace only", callstore.StageFreeform, "Ravi", "   ", ClassificationNoInput},
		{"intro without name", callstore.StageIntro, "", "Ravi Kumar this is", ClassificationNameCapture},
		{"awaiting name", callstore.StageAwaitingName, "", "Priya", ClassificationNameCapture},
		{"name supplied earlier", callstore.StageQualifying, "Ravi", "2BHK please", ClassificationQuery},
		{"goodbye", callstore.StageFreeform, "Ravi", "okay goodbye", ClassificationTerminate},
		{"end call phrase", callstore.StageFreeform, "Ravi", "please end call now", ClassificationTerminate},
		{"case insensitive", callstore.StageFreeform, "Ravi", "HANG UP please", ClassificationTerminate},
		{"hindi farewell", callstore.StageFreeform, "Ravi", "ठीक है अलविदा", ClassificationTerminate},
		{"ordinary question", callstore.StageFreeform, "Ravi", "what is the price", ClassificationQuery},
		// Name capture wins while no name is stored, even for a farewell word.
		{"farewell before name", callstore.StageAwaitingName, "", "goodbye", ClassificationNameCapture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.stage, tt.callerName, tt.utterance)
			if got != tt.want {
				t.Errorf("Classify(%q, %q, %q) = %q, want %q", tt.stage, tt.callerName, tt.utterance, got, tt.want)
			}
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"Ravi Kumar this is", "Ravi Kumar"},
		{"Priya", "Priya"},
		{"  Anil   Mehta  ", "Anil Mehta"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractName(tt.utterance); got != tt.want {
			t.Errorf("ExtractName(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}
