package handler

import (
	"net/http"

	"github.com/worthym330/voice-agent/internal/apierrors"
	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
)

type outboundCallRequest struct {
	ToNumber     string `json:"to_number"`
	LanguagePref string `json:"language_pref" binding:"omitempty,oneof=english hindi both"`
}

type outboundCallResponse struct {
	CallSid string `json:"call_sid"`
	Status  string `json:"status"`
	To      string `json:"to"`
}

// HandleOutboundCall places an outbound call to the requested number, falling
// back to the configured target number when none is given.
func (h *Handler) HandleOutboundCall(c *gin.Context) {
	ctx := c.Request.Context()

	var req outboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "to_number", Value: req.ToNumber})
	result, err := h.dialogue.InitiateCall(ctx, processor.OutboundCallParams{
		ToNumber:     req.ToNumber,
		LanguagePref: callstore.ParseLanguage(req.LanguagePref),
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, outboundCallResponse{
		CallSid: result.CallSid,
		Status:  result.Status,
		To:      result.To,
	})
}
