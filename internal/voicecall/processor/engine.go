package processor

import (
	"context"
	"fmt"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/directive"
)

// TurnEvent is one inbound voice webhook delivery.
type TurnEvent struct {
	CallSid    string
	From       string
	To         string
	SpeechText string
	Confidence string
}

// HandleTurn runs one turn of the dialogue state machine and returns the
// instruction set to play back. It never fails: internal errors degrade to a
// spoken apology so the webhook always receives a valid response.
func (p *DialogueProcessor) HandleTurn(ctx context.Context, ev TurnEvent) directive.Set {
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: ev.CallSid})

	state := p.store.GetOrCreate(ctx, ev.CallSid)
	if state.Ended() {
		// Terminal state is terminal; acknowledge and nothing else.
		p.logger.Info(ctx, "turn received after call ended, acknowledging")
		return p.composer.Acknowledged()
	}

	classification := Classify(state.Stage, state.CallerName, ev.SpeechText)
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "stage", Value: string(state.Stage)},
		observability.Field{Key: "classification", Value: string(classification)},
	)

	if classification != ClassificationNoInput {
		p.store.AppendLog(ctx, ev.CallSid, callstore.SpeakerUser, ev.SpeechText)
	}

	switch classification {
	case ClassificationNameCapture:
		return p.captureName(ctx, ev, state)
	case ClassificationTerminate:
		// The farewell utterance still counts as a classified turn.
		updated, err := p.store.Update(ctx, ev.CallSid, func(s *callstore.CallState) {
			s.TurnCount++
			s.NoInputCount = 0
		})
		if err != nil {
			p.logger.Error(ctx, "failed to count final turn", err)
			updated = state
		}
		return p.terminate(ctx, ev.CallSid, updated)
	case ClassificationQuery:
		return p.answerQuery(ctx, ev, state)
	default:
		return p.handleNoInput(ctx, ev.CallSid, state)
	}
}

// captureName stores the caller's name and moves the dialogue to the
// qualification stage with a personalized prompt.
func (p *DialogueProcessor) captureName(ctx context.Context, ev TurnEvent, state callstore.CallState) directive.Set {
	name := ExtractName(ev.SpeechText)

	updated, err := p.store.Update(ctx, ev.CallSid, func(s *callstore.CallState) {
		s.CallerName = name
		s.Stage = callstore.StageQualifying
		s.TurnCount++
		s.NoInputCount = 0
	})
	if err != nil {
		p.logger.Error(ctx, "failed to store captured name", err)
		return p.composer.ErrorFallback(state.LanguagePref)
	}

	p.store.AppendLog(ctx, ev.CallSid, callstore.SpeakerSystem, fmt.Sprintf("NAME_CAPTURED %s", updated.CallerName))

	prompt := p.composer.QualifyingText(updated.CallerName)
	p.store.AppendLog(ctx, ev.CallSid, callstore.SpeakerAssistant, prompt)
	return p.composer.Qualifying(updated.LanguagePref, updated.CallerName)
}

// terminate says goodbye and finalizes the call.
func (p *DialogueProcessor) terminate(ctx context.Context, callSid string, state callstore.CallState) directive.Set {
	p.logger.Info(ctx, "caller requested to end the call")
	farewell := p.composer.FarewellText(state.LanguagePref)
	p.store.AppendLog(ctx, callSid, callstore.SpeakerAssistant, farewell)
	p.store.Finalize(ctx, callSid)
	return p.composer.Farewell(state.LanguagePref)
}

// answerQuery asks the AI responder for a reply; on failure the fixed apology
// keeps the conversation alive.
func (p *DialogueProcessor) answerQuery(ctx context.Context, ev TurnEvent, state callstore.CallState) directive.Set {
	updated, err := p.store.Update(ctx, ev.CallSid, func(s *callstore.CallState) {
		s.Stage = callstore.StageFreeform
		s.TurnCount++
		s.NoInputCount = 0
	})
	if err != nil {
		p.logger.Error(ctx, "failed to update call state", err)
		return p.composer.ErrorFallback(state.LanguagePref)
	}

	if updated.TurnCount > p.settings.MaxTurns {
		p.logger.Warn(ctx, "turn cap reached, wrapping up the call")
		return p.terminate(ctx, ev.CallSid, updated)
	}

	aiCtx, cancel := context.WithTimeout(ctx, p.settings.AITimeout)
	defer cancel()

	reply, err := p.ai.GenerateReply(aiCtx, ev.SpeechText, updated.CallerName)
	if err != nil {
		p.logger.Error(ctx, "AI responder failed, substituting apology", err)
		apology := p.composer.ApologyText(updated.LanguagePref)
		p.store.AppendLog(ctx, ev.CallSid, callstore.SpeakerAssistant, apology)
		return p.composer.Apology(updated.LanguagePref)
	}

	p.store.AppendLog(ctx, ev.CallSid, callstore.SpeakerAssistant, reply)
	return p.composer.Reply(updated.LanguagePref, reply)
}

// handleNoInput greets a fresh call, re-prompts a silent caller, and gives up
// politely once the retry budget is spent.
func (p *DialogueProcessor) handleNoInput(ctx context.Context, callSid string, state callstore.CallState) directive.Set {
	if state.Stage == callstore.StageIntro {
		// First contact: greet and listen for the name.
		updated, err := p.store.Update(ctx, callSid, func(s *callstore.CallState) {
			s.Stage = callstore.StageAwaitingName
		})
		if err != nil {
			p.logger.Error(ctx, "failed to advance intro stage", err)
			return p.composer.ErrorFallback(state.LanguagePref)
		}
		greet := p.composer.GreetingText(updated.LanguagePref)
		p.store.AppendLog(ctx, callSid, callstore.SpeakerAssistant, greet)
		return p.composer.Greeting(updated.LanguagePref)
	}

	updated, err := p.store.Update(ctx, callSid, func(s *callstore.CallState) {
		s.NoInputCount++
	})
	if err != nil {
		p.logger.Error(ctx, "failed to count silent turn", err)
		return p.composer.ErrorFallback(state.LanguagePref)
	}

	if updated.NoInputCount >= p.settings.NoInputRetryLimit {
		p.logger.Info(ctx, "no-input retry budget spent, ending call")
		return p.terminate(ctx, callSid, updated)
	}

	p.store.AppendLog(ctx, callSid, callstore.SpeakerSystem, "NO_INPUT")
	return p.composer.Reprompt(updated.LanguagePref, updated.Stage)
}

// ConversationLog returns the ordered log for a call.
func (p *DialogueProcessor) ConversationLog(ctx context.Context, callSid string) ([]callstore.CallLogEntry, error) {
	return p.store.Entries(ctx, callSid)
}

// SubscribeConversation streams log entries as they are appended.
func (p *DialogueProcessor) SubscribeConversation(ctx context.Context, callSid string) (<-chan callstore.CallLogEntry, func(), error) {
	return p.store.Subscribe(ctx, callSid)
}
