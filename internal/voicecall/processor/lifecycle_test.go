package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/worthym330/voice-agent/internal/callstore"
)

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []string
	entries int
	done    chan struct{}
}

func (f *fakeNotifier) NotifyCallCompleted(ctx context.Context, callSid string, entries []callstore.CallLogEntry) error {
	f.mu.Lock()
	f.calls = append(f.calls, callSid)
	f.entries = len(entries)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

func TestTerminalStatusFinalizesOnce(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleStatus(ctx, "CA1", "completed")
	rig.proc.HandleStatus(ctx, "CA1", "completed")

	if !rig.state(t, "CA1").Ended() {
		t.Error("expected the call to be finalized")
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
	if !containsPrefix(texts, "SYSTEM STATUS completed") {
		t.Error("expected a STATUS marker in the log")
	}
}

func TestNonTerminalStatusKeepsCallAlive(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleStatus(ctx, "CA1", "ringing")
	rig.proc.HandleStatus(ctx, "CA1", "in-progress")

	if rig.state(t, "CA1").Ended() {
		t.Error("non-terminal statuses must not finalize the call")
	}
}

func TestCompletedCallNotifiesLeadHandoff(t *testing.T) {
	rig := newTestRig(t, nil)
	notifier := &fakeNotifier{done: make(chan struct{}, 1)}
	rig.proc.notifier = notifier
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1", SpeechText: "Ravi Kumar"})
	rig.proc.HandleStatus(ctx, "CA1", "completed")

	select {
	case <-notifier.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the lead notification")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 1 || notifier.calls[0] != "CA1" {
		t.Errorf("unexpected notified calls: %v", notifier.calls)
	}
	if notifier.entries == 0 {
		t.Error("expected the transcript to be passed to the notifier")
	}
}

func TestFailedCallDoesNotNotify(t *testing.T) {
	rig := newTestRig(t, nil)
	notifier := &fakeNotifier{}
	rig.proc.notifier = notifier
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleStatus(ctx, "CA1", "no-answer")

	// Finalized without a completed status, so no handoff.
	if !rig.state(t, "CA1").Ended() {
		t.Error("expected the call to be finalized")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 0 {
		t.Errorf("expected no notifications, got %v", notifier.calls)
	}
}

func TestCompletedRecordingIsDownloaded(t *testing.T) {
	rig := newTestRig(t, nil)
	recorder := &fakeRecorder{path: "recordings/recording_CA1.mp3", done: make(chan string, 1)}
	rig.proc.recorder = recorder
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleRecording(ctx, "CA1", "https://api.twilio.com/recordings/RE1", "completed")

	select {
	case url := <-recorder.done:
		if url != "https://api.twilio.com/recordings/RE1" {
			t.Errorf("downloaded unexpected URL %q", url)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the recording download")
	}
}

func TestInProgressRecordingIsNotDownloaded(t *testing.T) {
	rig := newTestRig(t, nil)
	recorder := &fakeRecorder{done: make(chan string, 1)}
	rig.proc.recorder = recorder
	ctx := context.Background()

	rig.proc.HandleTurn(ctx, TurnEvent{CallSid: "CA1"})
	rig.proc.HandleRecording(ctx, "CA1", "https://api.twilio.com/recordings/RE1", "in-progress")

	select {
	case <-recorder.done:
		t.Error("in-progress recordings must not be downloaded")
	case <-time.After(50 * time.Millisecond):
	}
}
