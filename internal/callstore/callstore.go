package callstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/worthym330/voice-agent/internal/observability"
)

var ErrNotFound = errors.New("call not found")

// Stage is the conversational stage of a call.
type Stage string

const (
	StageIntro        Stage = "intro"
	StageAwaitingName Stage = "awaiting_name"
	StageQualifying   Stage = "qualifying"
	StageFreeform     Stage = "freeform"
	StageEnded        Stage = "ended"
)

// Language is the caller's greeting-language preference.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
	LanguageBoth    Language = "both"
)

// ParseLanguage normalizes a request-supplied preference, defaulting to both.
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageEnglish, LanguageHindi:
		return Language(s)
	default:
		return LanguageBoth
	}
}

// CallState is the per-call dialogue state. The store owns it exclusively;
// callers receive copies.
type CallState struct {
	CallSid      string
	Stage        Stage
	CallerName   string
	LanguagePref Language
	TurnCount    int
	NoInputCount int
	CreatedAt    time.Time
	EndedAt      *time.Time
}

// Ended reports whether the call has reached its terminal stage.
func (s CallState) Ended() bool {
	return s.Stage == StageEnded
}

type callRecord struct {
	mu      sync.Mutex
	state   CallState
	entries []CallLogEntry
	subs    map[chan CallLogEntry]struct{}
}

// Store owns all CallState records and their conversation logs. Mutations to a
// single call are serialized behind a per-call mutex, so duplicate or
// out-of-order webhook deliveries cannot interleave.
type Store struct {
	mu     sync.RWMutex
	calls  map[string]*callRecord
	sinks  []LogSink
	logger *observability.Logger
}

// New creates a Store. Sinks receive every appended log entry; a sink failure
// is logged and never propagated to the dialogue path.
func New(logger *observability.Logger, sinks ...LogSink) *Store {
	return &Store{
		calls:  make(map[string]*callRecord),
		sinks:  sinks,
		logger: logger,
	}
}

// GetOrCreate returns the state for callSid, creating a fresh intro-stage
// record with the default language preference on first access.
func (s *Store) GetOrCreate(ctx context.Context, callSid string) CallState {
	return s.getOrCreate(ctx, callSid, LanguageBoth)
}

// Register creates the state for a freshly placed outbound call with the
// requested language preference. If the call already exists the preference is
// left untouched: it is set at most once, at creation.
func (s *Store) Register(ctx context.Context, callSid string, pref Language) CallState {
	return s.getOrCreate(ctx, callSid, pref)
}

func (s *Store) getOrCreate(ctx context.Context, callSid string, pref Language) CallState {
	s.mu.Lock()
	rec, ok := s.calls[callSid]
	if !ok {
		rec = &callRecord{
			state: CallState{
				CallSid:      callSid,
				Stage:        StageIntro,
				LanguagePref: pref,
				CreatedAt:    time.Now().UTC(),
			},
			subs: make(map[chan CallLogEntry]struct{}),
		}
		s.calls[callSid] = rec
		// Take the per-call lock before publishing the record so CALL START
		// is the first entry even when appends race the creation.
		rec.mu.Lock()
		s.mu.Unlock()
		s.appendLocked(ctx, rec, SpeakerSystem, "CALL START")
		state := rec.state
		rec.mu.Unlock()
		return state
	}
	s.mu.Unlock()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state
}

func (s *Store) record(callSid string) (*callRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.calls[callSid]
	return rec, ok
}

// Update applies mutate to the call's state under the per-call lock and
// returns the resulting snapshot. A call that has already ended is never
// mutated: the unchanged state is returned so the caller can still
// acknowledge the event. The store enforces that a captured caller name is
// immutable and that the ended stage cannot be left.
func (s *Store) Update(ctx context.Context, callSid string, mutate func(*CallState)) (CallState, error) {
	rec, ok := s.record(callSid)
	if !ok {
		return CallState{}, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.state.Ended() {
		return rec.state, nil
	}

	prevName := rec.state.CallerName
	prevStage := rec.state.Stage
	mutate(&rec.state)

	if prevName != "" {
		rec.state.CallerName = prevName
	}
	if rec.state.Stage == StageEnded {
		// Termination goes through Finalize so the CALL END marker is written
		// exactly once.
		rec.state.Stage = prevStage
	}
	return rec.state, nil
}

// State returns a snapshot of the call's state.
func (s *Store) State(ctx context.Context, callSid string) (CallState, error) {
	rec, ok := s.record(callSid)
	if !ok {
		return CallState{}, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, nil
}

// AppendLog appends a conversation log entry for the call. Appends are
// fire-and-forget: sink failures are logged and swallowed. Entries appended
// for unknown calls create the call record first, so a late webhook can never
// lose its transcript line.
func (s *Store) AppendLog(ctx context.Context, callSid string, speaker Speaker, text string) {
	s.GetOrCreate(ctx, callSid)
	rec, _ := s.record(callSid)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	s.appendLocked(ctx, rec, speaker, text)
}

func (s *Store) appendLocked(ctx context.Context, rec *callRecord, speaker Speaker, text string) {
	entry := CallLogEntry{
		CallSid:   rec.state.CallSid,
		Timestamp: time.Now().UTC(),
		Speaker:   speaker,
		Text:      text,
	}
	rec.entries = append(rec.entries, entry)

	for sub := range rec.subs {
		select {
		case sub <- entry:
		default:
			// Slow subscriber; the live feed is best-effort.
		}
	}

	for _, sink := range s.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			s.logger.Error(ctx, "failed to persist call log entry", err)
		}
	}
}

// Finalize marks the call ended and writes the CALL END marker. It is
// idempotent: repeated calls are no-ops and produce a single marker.
func (s *Store) Finalize(ctx context.Context, callSid string) {
	rec, ok := s.record(callSid)
	if !ok {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.state.Ended() {
		return
	}

	now := time.Now().UTC()
	rec.state.Stage = StageEnded
	rec.state.EndedAt = &now
	s.appendLocked(ctx, rec, SpeakerSystem, "CALL END")

	for sub := range rec.subs {
		close(sub)
		delete(rec.subs, sub)
	}
}

// Entries returns the ordered conversation log for the call.
func (s *Store) Entries(ctx context.Context, callSid string) ([]CallLogEntry, error) {
	rec, ok := s.record(callSid)
	if !ok {
		return nil, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	entries := make([]CallLogEntry, len(rec.entries))
	copy(entries, rec.entries)
	return entries, nil
}

// Subscribe returns a channel receiving log entries as they are appended,
// plus a cancel function. The channel is closed when the call is finalized.
func (s *Store) Subscribe(ctx context.Context, callSid string) (<-chan CallLogEntry, func(), error) {
	rec, ok := s.record(callSid)
	if !ok {
		return nil, nil, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.state.Ended() {
		ch := make(chan CallLogEntry)
		close(ch)
		return ch, func() {}, nil
	}

	ch := make(chan CallLogEntry, 16)
	rec.subs[ch] = struct{}{}

	cancel := func() {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if _, still := rec.subs[ch]; still {
			delete(rec.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}
