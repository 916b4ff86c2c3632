package handler

import (
	"net/http"

	"github.com/worthym330/voice-agent/internal/apierrors"
	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	twilioclient "github.com/twilio/twilio-go/client"
)

// ConfigView is the non-secret runtime configuration exposed on /api/config.
type ConfigView struct {
	TwilioPhoneNumber string `json:"twilio_phone_number"`
	TargetPhoneNumber string `json:"target_phone_number,omitempty"`
	AIModel           string `json:"ai_model"`
	ProjectName       string `json:"project_name"`
	CompanyName       string `json:"company_name"`
	PublicURL         string `json:"public_url"`
}

type Handler struct {
	dialogue           *processor.DialogueProcessor
	logger             *observability.Logger
	apiKey             string
	publicURL          string
	validateSignatures bool
	requestValidator   twilioclient.RequestValidator
	configView         ConfigView
}

// Options carries the handler's security and introspection settings.
type Options struct {
	APIKey             string
	PublicURL          string
	TwilioAuthToken    string
	ValidateSignatures bool
	ConfigView         ConfigView
}

func New(dialogue *processor.DialogueProcessor, opts Options, logger *observability.Logger) Handler {
	return Handler{
		dialogue:           dialogue,
		logger:             logger,
		apiKey:             opts.APIKey,
		publicURL:          opts.PublicURL,
		validateSignatures: opts.ValidateSignatures,
		requestValidator:   twilioclient.NewRequestValidator(opts.TwilioAuthToken),
		configView:         opts.ConfigView,
	}
}

// upgrader is a shared WebSocket upgrader for the live transcript stream.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RequireAPIKey guards the operator endpoints. Requests must carry the
// configured key in X-API-Key. If no key is configured the guard is inert,
// which keeps local development friction-free.
func (h *Handler) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != h.apiKey {
			apierrors.Unauthorized(c, "Missing or invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// HandleGetConfig returns the sanitized runtime configuration.
func (h *Handler) HandleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.configView)
}

// HandleHealthCheck is the unauthenticated liveness probe.
func (h *Handler) HandleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
