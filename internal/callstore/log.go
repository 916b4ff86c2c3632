package callstore

import (
	"context"
	"time"
)

// Speaker identifies who produced a conversation log line.
type Speaker string

const (
	SpeakerUser      Speaker = "USER"
	SpeakerAssistant Speaker = "ASSISTANT"
	SpeakerSystem    Speaker = "SYSTEM"
)

// CallLogEntry is one append-only line of a call's conversation log.
type CallLogEntry struct {
	CallSid   string    `json:"call_sid"`
	Timestamp time.Time `json:"timestamp"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
}

// LogSink receives every appended log entry. Implementations must tolerate
// entries for calls they have never seen, must accept entries that arrive
// after the call finalized (recording events do), and must never block the
// dialogue path for long; the store logs and swallows sink errors.
type LogSink interface {
	Append(ctx context.Context, entry CallLogEntry) error
}
