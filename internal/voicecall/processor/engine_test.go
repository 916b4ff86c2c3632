package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/clients/telephony"
	"github.com/worthym330/voice-agent/internal/observability"
)

type fakeAI struct {
	reply string
	err   error

	mu            sync.Mutex
	lastUtterance string
	lastName      string
}

func (f *fakeAI) GenerateReply(ctx context.Context, utterance, callerName string) (string, error) {
	f.mu.Lock()
	f.lastUtterance = utterance
	f.lastName = callerName
	f.mu.Unlock()
	return f.reply, f.err
}

type fakePlacer struct {
	placed telephony.PlacedCall
	err    error

	mu     sync.Mutex
	params telephony.PlaceCallParams
}

func (f *fakePlacer) PlaceCall(ctx context.Context, params telephony.PlaceCallParams) (telephony.PlacedCall, error) {
	f.mu.Lock()
	f.params = params
	f.mu.Unlock()
	if f.err != nil {
		return telephony.PlacedCall{}, f.err
	}
	return f.placed, nil
}

type fakeRecorder struct {
	path string
	err  error
	done chan string
}

func (f *fakeRecorder) DownloadRecording(ctx context.Context, callSid, recordingURL string) (string, error) {
	if f.done != nil {
		defer func() { f.done <- recordingURL }()
	}
	return f.path, f.err
}

type testRig struct {
	store  *callstore.Store
	ai     *fakeAI
	placer *fakePlacer
	proc   *DialogueProcessor
}

func newTestRig(t *testing.T, mutate func(*Settings)) *testRig {
	t.Helper()

	logger := observability.NewLogger()
	store := callstore.New(logger)
	ai := &fakeAI{reply: "Prices start at 55 lakhs."}
	placer := &fakePlacer{placed: telephony.PlacedCall{Sid: "CAout", Status: "queued"}}

	settings := Settings{
		TwilioPhoneNumber:    "+15550001111",
		TargetPhoneNumber:    "+15550002222",
		VoiceCallbackURL:     testCallbackURL,
		StatusCallbackURL:    "https://agent.example.com/api/callback/twilio/status",
		RecordingCallbackURL: "https://agent.example.com/api/callback/twilio/recording",
		NoInputRetryLimit:    3,
		MaxTurns:             30,
	}
	if mutate != nil {
		mutate(&settings)
	}

	proc := New(store, ai, placer, &fakeRecorder{path: "recordings/recording_CAout.mp3"}, nil,
		newTestComposer(), settings, logger)
	return &testRig{store: store, ai: ai, placer: placer, proc: proc}
}

func (r *testRig) state(t *testing.T, callSid string) callstore.CallState {
	t.Helper()
	state, err := r.store.State(context.Background(), callSid)
	if err != nil {
		t.Fatalf("State returned error: %v", err)
	}
	return state
}

func (r *testRig) logTexts(t *testing.T, callSid string) []string {
	t.Helper()
	entries, err := r.store.Entries(context.Background(), callSid)
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	texts := make([]string, 0, len(entries))
	for _, entry := range entries {
		texts = append(texts, string(entry.Speaker)+" "+entry.Text)
	}
	return texts
}

func containsPrefix(texts []string, prefix string) bool {
	for _, text := range texts {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func TestFirstContactGreetsAndWaitsForName(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})

	if !set.Gathers() || set.EndsCall() {
		t.Errorf("expected a gathering set, got gathers=%v ends=%v", set.Gathers(), set.EndsCall())
	}
	if got := rig.state(t, "CA1").Stage; got != callstore.StageAwaitingName {
		t.Errorf("stage = %q, want %q", got, callstore.StageAwaitingName)
	}
	if !containsPrefix(rig.logTexts(t, "CA1"), "ASSISTANT Hello!") {
		t.Error("expected the greeting in the conversation log")
	}
}

func TestNameCaptureTakesFirstTwoTokens(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar this is"})

	state := rig.state(t, "CA1")
	if state.CallerName != "Ravi Kumar" {
		t.Errorf("caller name = %q, want %q", state.CallerName, "Ravi Kumar")
	}
	if state.Stage != callstore.StageQualifying {
		t.Errorf("stage = %q, want %q", state.Stage, callstore.StageQualifying)
	}
	if !set.Gathers() {
		t.Error("qualification prompt must gather the next utterance")
	}

	texts := rig.logTexts(t, "CA1")
	if !containsPrefix(texts, "USER Ravi Kumar this is") {
		t.Error("expected the raw utterance in the log")
	}
	if !containsPrefix(texts, "SYSTEM NAME_CAPTURED Ravi Kumar") {
		t.Error("expected a NAME_CAPTURED marker in the log")
	}
}

func TestTerminationKeywordEndsCall(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})
	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "please end call now"})

	if !set.EndsCall() || set.Gathers() {
		t.Errorf("expected a hangup without gather, got gathers=%v ends=%v", set.Gathers(), set.EndsCall())
	}
	state := rig.state(t, "CA1")
	if !state.Ended() {
		t.Error("expected the call to be finalized")
	}
	// Name capture plus the farewell utterance, both classified turns.
	if state.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2", state.TurnCount)
	}

	texts := rig.logTexts(t, "CA1")
	endMarkers := 0
	for _, text := range texts {
		if text == "SYSTEM CALL END" {
			endMarkers++
		}
	}
	if endMarkers != 1 {
		t.Errorf("expected exactly one CALL END marker, got %d", endMarkers)
	}
}

func TestQueryGoesToAIWithCapturedName(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})
	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "what is the price of a 2BHK"})

	if !set.Gathers() {
		t.Error("reply must gather the next utterance")
	}
	if rig.ai.lastUtterance != "what is the price of a 2BHK" {
		t.Errorf("AI got utterance %q", rig.ai.lastUtterance)
	}
	if rig.ai.lastName != "Ravi Kumar" {
		t.Errorf("AI got caller name %q", rig.ai.lastName)
	}
	if !containsPrefix(rig.logTexts(t, "CA1"), "ASSISTANT Prices start at 55 lakhs.") {
		t.Error("expected the AI reply in the conversation log")
	}
}

func TestAIFailureSubstitutesApology(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.ai.err = errors.New("model overloaded")
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})
	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "what is the price"})

	if !set.Gathers() || set.EndsCall() {
		t.Error("apology must keep the conversation alive")
	}
	if rig.state(t, "CA1").Ended() {
		t.Error("an AI failure must not end the call")
	}
	if !containsPrefix(rig.logTexts(t, "CA1"), "ASSISTANT I'm having trouble right now.") {
		t.Error("expected the apology in the conversation log")
	}
}

func TestSilenceRetryBudget(t *testing.T) {
	rig := newTestRig(t, func(s *Settings) { s.NoInputRetryLimit = 2 })
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})

	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	if set.EndsCall() {
		t.Fatal("first silent turn must re-prompt, not hang up")
	}

	set = rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	if !set.EndsCall() {
		t.Error("second silent turn must spend the retry budget and end the call")
	}
	if !rig.state(t, "CA1").Ended() {
		t.Error("expected the call to be finalized")
	}
}

func TestTurnCapWrapsUpRunawayConversation(t *testing.T) {
	rig := newTestRig(t, func(s *Settings) { s.MaxTurns = 2 })
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "tell me about the project"})
	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "tell me more"})

	if !set.EndsCall() {
		t.Error("expected the turn cap to end the call")
	}
	if !rig.state(t, "CA1").Ended() {
		t.Error("expected the call to be finalized")
	}
}

func TestTurnAfterEndIsAcknowledged(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.store.Finalize(ctx, "CA1")

	set := rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "hello again"})
	if !set.EndsCall() || set.Gathers() {
		t.Error("post-end turns must be acknowledged with a bare hangup")
	}

	// The late utterance must not mutate state or re-open the call.
	if got := rig.state(t, "CA1").TurnCount; got != 0 {
		t.Errorf("TurnCount = %d, want 0", got)
	}
}
