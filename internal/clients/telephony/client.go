package telephony

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/worthym330/voice-agent/internal/observability"
)

// PlaceCallParams carries everything needed to start one outbound call.
type PlaceCallParams struct {
	To                   string
	From                 string
	TwiML                string
	StatusCallbackURL    string
	RecordingCallbackURL string
	Record               bool
}

// PlacedCall is the provider's acknowledgement of a placed call.
type PlacedCall struct {
	Sid    string
	Status string
}

// Client wraps the Twilio REST API for call placement and recording download.
type Client struct {
	api          *twilio.RestClient
	accountSID   string
	authToken    string
	recordingDir string
	httpClient   *http.Client
	logger       *observability.Logger
}

func NewClient(accountSID, authToken, recordingDir string, logger *observability.Logger) *Client {
	return &Client{
		api: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		accountSID:   accountSID,
		authToken:    authToken,
		recordingDir: recordingDir,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// PlaceCall starts an outbound call that executes the given TwiML.
func (c *Client) PlaceCall(ctx context.Context, p PlaceCallParams) (PlacedCall, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "to", Value: p.To},
		observability.Field{Key: "from", Value: p.From},
	)

	params := &twilioapi.CreateCallParams{}
	params.SetTo(p.To)
	params.SetFrom(p.From)
	params.SetTwiml(p.TwiML)
	params.SetStatusCallback(p.StatusCallbackURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	if p.Record {
		params.SetRecord(true)
		params.SetRecordingStatusCallback(p.RecordingCallbackURL)
	}

	call, err := c.api.Api.CreateCall(params)
	if err != nil {
		c.logger.Error(ctx, "Twilio call creation failed", err)
		return PlacedCall{}, fmt.Errorf("failed to create call: %w", err)
	}

	placed := PlacedCall{}
	if call.Sid != nil {
		placed.Sid = *call.Sid
	}
	if call.Status != nil {
		placed.Status = *call.Status
	}
	c.logger.Info(ctx, fmt.Sprintf("Outbound call placed, SID=%s status=%s", placed.Sid, placed.Status))
	return placed, nil
}

// DownloadRecording fetches a completed call recording and stores it under
// the recording directory. Twilio serves the audio behind basic auth at the
// recording URL with an .mp3 suffix.
func (c *Client) DownloadRecording(ctx context.Context, callSid, recordingURL string) (string, error) {
	audioURL := recordingURL
	if !strings.HasSuffix(audioURL, ".mp3") {
		audioURL += ".mp3"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create recording request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recording download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recording download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.recordingDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}

	path := filepath.Join(c.recordingDir, fmt.Sprintf("recording_%s.mp3", callSid))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write recording file: %w", err)
	}
	return path, nil
}
