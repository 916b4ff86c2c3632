package handler

import (
	"fmt"
	"net/http"

	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/processor"
	"github.com/worthym330/voice-agent/internal/voicecall/twilioml"

	"github.com/gin-gonic/gin"
)

// apologyTwiML is the hand-built last resort when directive rendering itself
// fails. Twilio must always receive valid TwiML on the voice webhook.
const apologyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say voice="Polly.Joanna" language="en-US">I am sorry, something went wrong. Please call again later.</Say><Hangup/></Response>`

// verifySignature checks X-Twilio-Signature against the configured auth token.
// Twilio signs the full public URL plus the sorted POST form parameters.
func (h *Handler) verifySignature(c *gin.Context) bool {
	if !h.validateSignatures {
		return true
	}

	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	url := h.publicURL + c.Request.URL.RequestURI()
	return h.requestValidator.Validate(url, params, c.GetHeader("X-Twilio-Signature"))
}

// HandleVoiceWebhook processes a Twilio voice webhook (initial answer and
// every subsequent speech gather) and responds with TwiML.
func (h *Handler) HandleVoiceWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.verifySignature(c) {
		h.logger.Warn(ctx, "rejected voice webhook with invalid Twilio signature")
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	ev := processor.TurnEvent{
		CallSid:    c.PostForm("CallSid"),
		From:       c.PostForm("From"),
		To:         c.PostForm("To"),
		SpeechText: c.PostForm("SpeechResult"),
		Confidence: c.PostForm("Confidence"),
	}

	if ev.CallSid == "" {
		h.logger.Warn(ctx, "voice webhook without CallSid")
		c.Header("Content-Type", "text/xml")
		c.String(http.StatusOK, apologyTwiML)
		return
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: ev.CallSid})
	directives := h.dialogue.HandleTurn(ctx, ev)

	response, err := twilioml.Render(directives)
	if err != nil {
		h.logger.Error(ctx, "failed to render voice response", err)
		response = apologyTwiML
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, response)
}

// HandleStatusCallback records call status transitions. Terminal statuses
// finalize the call.
func (h *Handler) HandleStatusCallback(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.verifySignature(c) {
		h.logger.Warn(ctx, "rejected status callback with invalid Twilio signature")
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	callSid := c.PostForm("CallSid")
	callStatus := c.PostForm("CallStatus")
	if callSid == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSid},
		observability.Field{Key: "call_status", Value: callStatus},
	)
	h.logger.Info(ctx, fmt.Sprintf("call status update: %s", callStatus))
	h.dialogue.HandleStatus(ctx, callSid, callStatus)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// HandleRecordingCallback records recording lifecycle events and kicks off the
// best-effort download of completed recordings.
func (h *Handler) HandleRecordingCallback(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.verifySignature(c) {
		h.logger.Warn(ctx, "rejected recording callback with invalid Twilio signature")
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	callSid := c.PostForm("CallSid")
	if callSid == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSid})
	h.dialogue.HandleRecording(ctx, callSid, c.PostForm("RecordingUrl"), c.PostForm("RecordingStatus"))

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
