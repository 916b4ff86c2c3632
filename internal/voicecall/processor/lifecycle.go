package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/observability"
)

// terminalStatuses are the Twilio call statuses after which no further voice
// webhooks will arrive for the call.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// HandleStatus records a call lifecycle event and finalizes the call on a
// terminal status. Finalization is idempotent, so duplicate deliveries are
// harmless.
func (p *DialogueProcessor) HandleStatus(ctx context.Context, callSid, callStatus string) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSid},
		observability.Field{Key: "call_status", Value: callStatus},
	)
	p.logger.Info(ctx, "call status update")
	p.store.AppendLog(ctx, callSid, callstore.SpeakerSystem, fmt.Sprintf("STATUS %s", callStatus))

	if !terminalStatuses[callStatus] {
		return
	}

	p.store.Finalize(ctx, callSid)

	if callStatus == "completed" && p.notifier != nil {
		entries, err := p.store.Entries(ctx, callSid)
		if err != nil {
			p.logger.Error(ctx, "failed to read transcript for lead notification", err)
			return
		}
		// Detach from the webhook request; delivery is best-effort.
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := p.notifier.NotifyCallCompleted(notifyCtx, callSid, entries); err != nil {
				p.logger.Error(notifyCtx, "lead notification failed", err)
			}
		}()
	}
}

// HandleRecording logs a recording event and, when the recording completed,
// downloads it in the background. Recording storage never affects the
// dialogue path.
func (p *DialogueProcessor) HandleRecording(ctx context.Context, callSid, recordingURL, recordingStatus string) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSid},
		observability.Field{Key: "recording_status", Value: recordingStatus},
	)
	p.logger.Info(ctx, "recording status update")
	p.store.AppendLog(ctx, callSid, callstore.SpeakerSystem,
		fmt.Sprintf("RECORDING status=%s url=%s", recordingStatus, recordingURL))

	if recordingStatus != "completed" || recordingURL == "" {
		return
	}

	go func() {
		dlCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		path, err := p.recorder.DownloadRecording(dlCtx, callSid, recordingURL)
		if err != nil {
			p.logger.Error(dlCtx, "recording download failed", err)
			p.store.AppendLog(dlCtx, callSid, callstore.SpeakerSystem,
				fmt.Sprintf("RECORDING_DOWNLOAD_FAILED %v", err))
			return
		}
		p.store.AppendLog(dlCtx, callSid, callstore.SpeakerSystem,
			fmt.Sprintf("RECORDING_DOWNLOADED %s", path))
	}()
}
