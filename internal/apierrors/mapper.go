package apierrors

import (
	"errors"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
)

// RespondWithError converts domain errors to HTTP responses. Unknown errors
// get a sanitized 500 so internal details never reach the client.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, processor.ErrMissingDestination):
		BadRequest(c, "MISSING_DESTINATION", "No destination number provided and no default target is configured")

	case errors.Is(err, processor.ErrMissingCallerID):
		BadRequest(c, "MISSING_CALLER_ID", "No outbound caller ID is configured")

	case errors.Is(err, processor.ErrCallPlacementFailed):
		ServiceUnavailable(c, "CALL_PLACEMENT_FAILED", "Telephony provider is temporarily unavailable. Please try again later.", err)

	case errors.Is(err, callstore.ErrNotFound):
		NotFound(c, "Call not found")

	default:
		InternalError(c, err)
	}
}
