package handler

import (
	"net/http"

	"github.com/worthym330/voice-agent/internal/apierrors"
	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type conversationResponse struct {
	CallSid string                   `json:"call_sid"`
	Entries []callstore.CallLogEntry `json:"entries"`
}

// HandleGetConversation returns the ordered conversation log for a call.
func (h *Handler) HandleGetConversation(c *gin.Context) {
	ctx := c.Request.Context()

	callSid := c.Param("call_sid")
	entries, err := h.dialogue.ConversationLog(ctx, callSid)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversationResponse{
		CallSid: callSid,
		Entries: entries,
	})
}

// HandleStreamConversation upgrades to a WebSocket and pushes conversation log
// entries as they are appended. The connection closes when the call ends or
// the client disconnects.
func (h *Handler) HandleStreamConversation(c *gin.Context) {
	ctx := c.Request.Context()

	callSid := c.Param("call_sid")
	entries, cancel, err := h.dialogue.SubscribeConversation(ctx, callSid)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSid})
	h.logger.Info(ctx, "transcript stream connected")

	// The read loop exists to notice the client going away; a silent call may
	// never trigger a write.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				// Call ended, drain complete.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"))
				return
			}
			if err := conn.WriteJSON(entry); err != nil {
				h.logger.Info(ctx, "transcript stream client disconnected")
				return
			}
		case <-clientGone:
			h.logger.Info(ctx, "transcript stream client disconnected")
			return
		case <-ctx.Done():
			return
		}
	}
}
