package api

import (
	voicecallHandler "github.com/worthym330/voice-agent/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	voicecallHandler voicecallHandler.Handler
}

func New(router *gin.RouterGroup, voicecallHandler voicecallHandler.Handler) API {
	return API{
		router:           router,
		voicecallHandler: voicecallHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")
	{
		callbackGroup := apiGroup.Group("/callback/twilio")
		callbackGroup.POST("/voice", a.voicecallHandler.HandleVoiceWebhook)
		callbackGroup.POST("/status", a.voicecallHandler.HandleStatusCallback)
		callbackGroup.POST("/recording", a.voicecallHandler.HandleRecordingCallback)
	}
	protectedGroup := apiGroup.Group("", a.voicecallHandler.RequireAPIKey())
	{
		protectedGroup.POST("/call/outbound", a.voicecallHandler.HandleOutboundCall)
		protectedGroup.GET("/conversation/:call_sid", a.voicecallHandler.HandleGetConversation)
		protectedGroup.GET("/conversation/:call_sid/stream", a.voicecallHandler.HandleStreamConversation)
		protectedGroup.GET("/config", a.voicecallHandler.HandleGetConfig)
	}
}

func (a *API) Health() {
	a.router.GET("/health", a.voicecallHandler.HandleHealthCheck)
}
