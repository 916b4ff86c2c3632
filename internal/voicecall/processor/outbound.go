package processor

import (
	"context"
	"fmt"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/clients/telephony"
	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/twilioml"
)

// OutboundCallParams is a request to place a new outbound call.
type OutboundCallParams struct {
	ToNumber     string
	LanguagePref callstore.Language
}

// OutboundCallResult acknowledges a placed call.
type OutboundCallResult struct {
	CallSid string
	Status  string
	To      string
}

// InitiateCall places an outbound call that greets the callee and gathers
// their name. The returned call SID is registered in the store before any
// webhook for it can arrive.
func (p *DialogueProcessor) InitiateCall(ctx context.Context, params OutboundCallParams) (OutboundCallResult, error) {
	to := params.ToNumber
	if to == "" {
		to = p.settings.TargetPhoneNumber
	}
	if to == "" {
		return OutboundCallResult{}, ErrMissingDestination
	}
	if p.settings.TwilioPhoneNumber == "" {
		return OutboundCallResult{}, ErrMissingCallerID
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "to", Value: to},
		observability.Field{Key: "language_pref", Value: string(params.LanguagePref)},
	)

	// Name first, no project details yet; the qualification stage needs a
	// name to personalize against.
	greeting := p.composer.Greeting(params.LanguagePref)
	markup, err := twilioml.Render(greeting)
	if err != nil {
		return OutboundCallResult{}, fmt.Errorf("failed to render greeting: %w", err)
	}

	placed, err := p.placer.PlaceCall(ctx, telephony.PlaceCallParams{
		To:                   to,
		From:                 p.settings.TwilioPhoneNumber,
		TwiML:                markup,
		StatusCallbackURL:    p.settings.StatusCallbackURL,
		RecordingCallbackURL: p.settings.RecordingCallbackURL,
		Record:               true,
	})
	if err != nil {
		p.logger.Error(ctx, "outbound call placement failed", err)
		return OutboundCallResult{}, fmt.Errorf("%w: %v", ErrCallPlacementFailed, err)
	}
	if placed.Sid == "" {
		// Without a SID there is nothing to key the call state on.
		return OutboundCallResult{}, fmt.Errorf("%w: provider returned no call SID", ErrCallPlacementFailed)
	}

	p.store.Register(ctx, placed.Sid, params.LanguagePref)
	p.store.AppendLog(ctx, placed.Sid, callstore.SpeakerSystem,
		fmt.Sprintf("OUTBOUND to=%s from=%s status=%s", to, p.settings.TwilioPhoneNumber, placed.Status))
	p.store.AppendLog(ctx, placed.Sid, callstore.SpeakerAssistant, p.composer.GreetingText(params.LanguagePref))

	// The greeting already asked for the name.
	if _, err := p.store.Update(ctx, placed.Sid, func(s *callstore.CallState) {
		s.Stage = callstore.StageAwaitingName
	}); err != nil {
		p.logger.Error(ctx, "failed to advance outbound call stage", err)
	}

	return OutboundCallResult{CallSid: placed.Sid, Status: placed.Status, To: to}, nil
}
