package processor

import (
	"errors"
	"time"

	"github.com/worthym330/voice-agent/internal/observability"
)

var (
	ErrMissingDestination  = errors.New("destination number is missing and no default is configured")
	ErrMissingCallerID     = errors.New("twilio caller number is not configured")
	ErrCallPlacementFailed = errors.New("failed to place outbound call")
)

// Settings bounds the dialogue loop and carries the default numbers for
// outbound calls.
type Settings struct {
	TwilioPhoneNumber    string
	TargetPhoneNumber    string
	VoiceCallbackURL     string
	StatusCallbackURL    string
	RecordingCallbackURL string
	AITimeout            time.Duration
	NoInputRetryLimit    int
	MaxTurns             int
}

// DialogueProcessor is the call dialogue state machine. It owns every
// decision about what to say next and when to end a call; state lives in the
// CallStore and side-effecting collaborators are injected as ports.
type DialogueProcessor struct {
	store    CallStore
	ai       AIResponder
	placer   CallPlacer
	recorder RecordingStore
	notifier LeadNotifier // nil when lead emails are not configured
	composer *Composer
	settings Settings
	logger   *observability.Logger
}

func New(store CallStore, ai AIResponder, placer CallPlacer, recorder RecordingStore,
	notifier LeadNotifier, composer *Composer, settings Settings,
	logger *observability.Logger) *DialogueProcessor {
	if settings.AITimeout <= 0 {
		settings.AITimeout = 8 * time.Second
	}
	if settings.NoInputRetryLimit <= 0 {
		settings.NoInputRetryLimit = 3
	}
	if settings.MaxTurns <= 0 {
		settings.MaxTurns = 30
	}
	return &DialogueProcessor{
		store:    store,
		ai:       ai,
		placer:   placer,
		recorder: recorder,
		notifier: notifier,
		composer: composer,
		settings: settings,
		logger:   logger,
	}
}
