package processor

import (
	"context"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/clients/telephony"
)

// CallStore is the state and log ownership boundary the engine depends on.
// *callstore.Store satisfies it.
type CallStore interface {
	GetOrCreate(ctx context.Context, callSid string) callstore.CallState
	Register(ctx context.Context, callSid string, pref callstore.Language) callstore.CallState
	Update(ctx context.Context, callSid string, mutate func(*callstore.CallState)) (callstore.CallState, error)
	AppendLog(ctx context.Context, callSid string, speaker callstore.Speaker, text string)
	Finalize(ctx context.Context, callSid string)
	Entries(ctx context.Context, callSid string) ([]callstore.CallLogEntry, error)
	Subscribe(ctx context.Context, callSid string) (<-chan callstore.CallLogEntry, func(), error)
}

// AIResponder generates a conversational reply for one caller utterance.
type AIResponder interface {
	GenerateReply(ctx context.Context, utterance, callerName string) (string, error)
}

// CallPlacer starts outbound calls through the telephony provider.
type CallPlacer interface {
	PlaceCall(ctx context.Context, params telephony.PlaceCallParams) (telephony.PlacedCall, error)
}

// RecordingStore downloads and persists completed call recordings.
type RecordingStore interface {
	DownloadRecording(ctx context.Context, callSid, recordingURL string) (string, error)
}

// LeadNotifier hands a finished call's transcript to the sales team.
type LeadNotifier interface {
	NotifyCallCompleted(ctx context.Context, callSid string, entries []callstore.CallLogEntry) error
}
