// Package leads hands a completed call over to the sales team: the full
// transcript is emailed so a human can follow up on the qualified lead.
package leads

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/resendlabs/resend-go"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/observability"
)

// Notifier emails call transcripts via Resend.
type Notifier struct {
	client *resend.Client
	from   string
	to     string
	logger *observability.Logger
}

func NewNotifier(apiKey, from, to string, logger *observability.Logger) (*Notifier, error) {
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Resend client")
	}
	return &Notifier{
		client: client,
		from:   from,
		to:     to,
		logger: logger,
	}, nil
}

// NotifyCallCompleted sends the transcript of a finished call. Failures are
// returned for logging only; callers treat delivery as best-effort.
func (n *Notifier) NotifyCallCompleted(ctx context.Context, callSid string, entries []callstore.CallLogEntry) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSid},
		observability.Field{Key: "email_to", Value: n.to},
	)

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("Call transcript %s", callSid),
		Html:    transcriptHTML(callSid, entries),
	}

	res, err := n.client.Emails.Send(params)
	if err != nil {
		n.logger.Error(ctx, "failed to send call transcript email", err)
		return fmt.Errorf("failed to send call transcript email: %w", err)
	}

	n.logger.Info(ctx, fmt.Sprintf("call transcript email sent, id=%s", res.Id))
	return nil
}

func transcriptHTML(callSid string, entries []callstore.CallLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Call %s</h3><ul>", html.EscapeString(callSid))
	for _, e := range entries {
		fmt.Fprintf(&b, "<li><b>%s</b> [%s] %s</li>",
			html.EscapeString(string(e.Speaker)),
			e.Timestamp.Format(time.RFC3339),
			html.EscapeString(e.Text))
	}
	b.WriteString("</ul>")
	return b.String()
}
