package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/clients/gemini"
	"github.com/worthym330/voice-agent/internal/clients/telephony"
	"github.com/worthym330/voice-agent/internal/config"
	"github.com/worthym330/voice-agent/internal/leads"
	"github.com/worthym330/voice-agent/internal/observability"
	voiceCallHandler "github.com/worthym330/voice-agent/internal/voicecall/handler"
	voiceCallProcessor "github.com/worthym330/voice-agent/internal/voicecall/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	CallStore *callstore.Store
	Logger    *observability.Logger

	// Handlers
	VoiceCallHandler voiceCallHandler.Handler

	// Held for cleanup
	postgresSink *callstore.PostgresSink
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	// Durable call-log sinks: per-call files always, Postgres when configured
	fileSink, err := callstore.NewFileSink(cfg.Logs.CallLogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file sink: %w", err)
	}
	sinks := []callstore.LogSink{fileSink}

	if cfg.Database.Host != "" {
		deps.postgresSink, err = callstore.NewPostgresSink(cfg.Database.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres sink: %w", err)
		}
		sinks = append(sinks, deps.postgresSink)
	}

	deps.CallStore = callstore.New(logger, sinks...)

	// Initialize clients
	aiClient := gemini.NewClient(cfg.AI.GoogleAIAPIKey, cfg.AI.Model, gemini.ProjectContext{
		CompanyName:   cfg.Project.CompanyName,
		ProjectName:   cfg.Project.ProjectName,
		Location:      cfg.Project.Location,
		StartingPrice: cfg.Project.StartingPrice,
		UnitTypes:     cfg.Project.UnitTypes,
	}, logger)

	telephonyClient := telephony.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken,
		cfg.Logs.RecordingDir, logger)

	var notifier voiceCallProcessor.LeadNotifier
	if cfg.Leads.ResendAPIKey != "" {
		leadNotifier, err := leads.NewNotifier(cfg.Leads.ResendAPIKey, cfg.Leads.FromAddress,
			cfg.Leads.ToAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create lead notifier: %w", err)
		}
		notifier = leadNotifier
	}

	// Initialize dialogue processor and handler
	composer := voiceCallProcessor.NewComposer(cfg.VoiceCallbackURL(), voiceCallProcessor.ProjectDetails{
		CompanyName:   cfg.Project.CompanyName,
		StartingPrice: cfg.Project.StartingPrice,
		UnitTypes:     cfg.Project.UnitTypes,
	})

	dialogueProc := voiceCallProcessor.New(deps.CallStore, aiClient, telephonyClient,
		telephonyClient, notifier, composer, voiceCallProcessor.Settings{
			TwilioPhoneNumber:    cfg.Twilio.PhoneNumber,
			TargetPhoneNumber:    cfg.Twilio.TargetPhoneNumber,
			VoiceCallbackURL:     cfg.VoiceCallbackURL(),
			StatusCallbackURL:    cfg.StatusCallbackURL(),
			RecordingCallbackURL: cfg.RecordingCallbackURL(),
			AITimeout:            time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			NoInputRetryLimit:    cfg.Dialogue.NoInputRetryLimit,
			MaxTurns:             cfg.Dialogue.MaxTurns,
		}, logger)

	deps.VoiceCallHandler = voiceCallHandler.New(dialogueProc, voiceCallHandler.Options{
		APIKey:             cfg.APIKey,
		PublicURL:          cfg.PublicURL,
		TwilioAuthToken:    cfg.Twilio.AuthToken,
		ValidateSignatures: cfg.Twilio.ValidateSignatures,
		ConfigView: voiceCallHandler.ConfigView{
			TwilioPhoneNumber: cfg.Twilio.PhoneNumber,
			TargetPhoneNumber: cfg.Twilio.TargetPhoneNumber,
			AIModel:           cfg.AI.Model,
			ProjectName:       cfg.Project.ProjectName,
			CompanyName:       cfg.Project.CompanyName,
			PublicURL:         cfg.PublicURL,
		},
	}, logger)

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup(ctx context.Context) {
	if d.postgresSink != nil {
		if err := d.postgresSink.Shutdown(); err != nil {
			d.Logger.Error(ctx, "failed to close postgres sink", err)
		}
	}
}
