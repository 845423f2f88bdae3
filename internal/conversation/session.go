// Package conversation runs the alternating two-persona dialogue.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/duration"
	"github.com/ent0n29/duet/internal/observability"
	"github.com/ent0n29/duet/internal/persona"
	"github.com/ent0n29/duet/internal/speech"
	"github.com/ent0n29/duet/internal/textgen"
	"github.com/ent0n29/duet/internal/transcript"
)

var (
	ErrRunActive     = errors.New("a conversation run is already active")
	ErrPersonaLocked = errors.New("personas cannot be edited while a run is active")
	ErrNotConfigured = errors.New("text generation is not configured")
	ErrTurnNotFound  = errors.New("turn not found")
	ErrNoSynthesizer = errors.New("speech synthesis is not configured")
)

// DefaultWaitBuffer is added to every playback estimate.
const DefaultWaitBuffer = 500 * time.Millisecond

type Options struct {
	Personas    persona.Pair
	Generator   textgen.Generator
	Synthesizer speech.Synthesizer
	Estimator   *duration.Estimator
	Clock       Clock
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	// WaitBuffer is added to every playback estimate. Zero or negative
	// values select DefaultWaitBuffer.
	WaitBuffer time.Duration
	// MaxTurns ends a run after that many transcript entries. Zero means
	// the run continues until stopped.
	MaxTurns int
}

// Status is a point-in-time view of the session.
type Status struct {
	RunID      string    `json:"run_id,omitempty"`
	Active     bool      `json:"active"`
	State      State     `json:"state"`
	Turns      int       `json:"turns"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at"`
	LastError  string    `json:"last_error,omitempty"`
	Configured bool      `json:"configured"`
}

// Session owns the personas, the transcript and at most one active run.
type Session struct {
	generator   textgen.Generator
	synthesizer speech.Synthesizer
	estimator   *duration.Estimator
	clock       Clock
	logger      *zap.Logger
	metrics     *observability.Metrics
	waitBuffer  time.Duration
	maxTurns    int

	transcript *transcript.Store
	events     *hub

	mu        sync.RWMutex
	personas  persona.Pair
	state     State
	current   *run
	lastRunID string
	runPair   persona.Pair
	startedAt time.Time
	stoppedAt time.Time
	lastErr   string
}

type run struct {
	id       string
	pair     persona.Pair
	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
	done     chan struct{}
}

func (r *run) requestStop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.stop)
	})
}

func (r *run) stopRequested() bool {
	return r.stopped.Load() || r.ctx.Err() != nil
}

func New(opts Options) *Session {
	if opts.Estimator == nil {
		opts.Estimator = duration.New()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WaitBuffer <= 0 {
		opts.WaitBuffer = DefaultWaitBuffer
	}
	if opts.MaxTurns < 0 {
		opts.MaxTurns = 0
	}
	return &Session{
		generator:   opts.Generator,
		synthesizer: opts.Synthesizer,
		estimator:   opts.Estimator,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		waitBuffer:  opts.WaitBuffer,
		maxTurns:    opts.MaxTurns,
		transcript:  transcript.NewStore(),
		events:      newHub(),
		personas:    opts.Personas.Normalize(),
		state:       StateIdle,
	}
}

// Configured reports whether Start can be permitted.
func (s *Session) Configured() bool {
	return s.generator != nil
}

// Start begins a new run. The transcript is cleared exactly once, here. The
// run outlives ctx's cancellation; only Stop or Close end it.
func (s *Session) Start(ctx context.Context) (string, error) {
	if s.generator == nil {
		return "", ErrNotConfigured
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return "", ErrRunActive
	}
	pair := s.personas
	if err := pair.Validate(); err != nil {
		s.mu.Unlock()
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:     uuid.NewString(),
		pair:   pair,
		ctx:    runCtx,
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.transcript.Reset()
	s.current = r
	s.lastRunID = r.id
	s.runPair = pair
	s.startedAt = s.clock.Now().UTC()
	s.stoppedAt = time.Time{}
	s.lastErr = ""
	s.state = StateGenerating
	s.mu.Unlock()

	s.metrics.RunStarted()
	s.logger.Info("conversation started",
		zap.String("run_id", r.id),
		zap.String("initiator", pair.Initiator.Name),
		zap.String("responder", pair.Responder.Name),
	)
	s.publish(Event{Kind: EventState, RunID: r.id, State: StateGenerating})

	go s.loop(r)
	return r.id, nil
}

// Stop signals the active run to end at its next check point. In-flight
// collaborator calls are allowed to finish. It reports whether a run was
// active.
func (s *Session) Stop() bool {
	s.mu.RLock()
	r := s.current
	s.mu.RUnlock()
	if r == nil {
		return false
	}
	r.requestStop()
	s.metrics.RunEvent("stop_requested")
	s.logger.Info("conversation stop requested", zap.String("run_id", r.id))
	return true
}

// Done returns a channel closed when the active run ends. It is nil when no
// run is active.
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.done
}

// Wait blocks until the active run ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	done := s.Done()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts the active run, cancelling in-flight calls, and waits for it.
func (s *Session) Close(ctx context.Context) error {
	s.mu.RLock()
	r := s.current
	s.mu.RUnlock()
	if r == nil {
		return nil
	}
	r.requestStop()
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Personas() persona.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personas
}

// UpdatePersonas replaces the persona pair. It is rejected while a run is
// active, and invalid pairs are rejected at any time.
func (s *Session) UpdatePersonas(p persona.Pair) error {
	p = p.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return ErrPersonaLocked
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.personas = p
	return nil
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() []transcript.Turn {
	return s.transcript.Snapshot()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		RunID:      s.lastRunID,
		Active:     s.current != nil,
		State:      s.state,
		Turns:      s.transcript.Len(),
		StartedAt:  s.startedAt,
		StoppedAt:  s.stoppedAt,
		LastError:  s.lastErr,
		Configured: s.generator != nil,
	}
}

// Subscribe registers an observer. Events are dropped for a subscriber whose
// buffer is full. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.subscribe(buffer)
}

// Replay re-synthesizes a stored utterance with its speaker's voice from the
// run that produced it.
func (s *Session) Replay(ctx context.Context, ordinal int) (transcript.Turn, speech.Artifact, error) {
	turn, ok := s.transcript.At(ordinal)
	if !ok || turn.Kind != transcript.KindUtterance {
		return transcript.Turn{}, speech.Artifact{}, fmt.Errorf("%w: %d", ErrTurnNotFound, ordinal)
	}
	if s.synthesizer == nil {
		return turn, speech.Artifact{}, ErrNoSynthesizer
	}
	s.mu.RLock()
	pair := s.runPair
	s.mu.RUnlock()
	speaker, ok := pair.Speaker(turn.SpeakerID)
	if !ok {
		return turn, speech.Artifact{}, fmt.Errorf("%w: unknown speaker %q", ErrTurnNotFound, turn.SpeakerID)
	}

	started := s.clock.Now()
	art, err := s.synthesizer.Synthesize(ctx, turn.Text, speaker.VoiceID)
	s.metrics.ObserveStage(observability.StageReplay, s.clock.Now().Sub(started))
	if err != nil {
		s.recordProviderError(speech.ProviderName(s.synthesizer), err)
		return turn, speech.Artifact{}, fmt.Errorf("replay turn %d: %w", ordinal, err)
	}
	return turn, art, nil
}

func (s *Session) setState(r *run, st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.publish(Event{Kind: EventState, RunID: r.id, State: st})
	}
}

func (s *Session) publish(ev Event) {
	if dropped := s.events.publish(ev); dropped > 0 {
		s.logger.Debug("event dropped for slow subscribers",
			zap.String("kind", string(ev.Kind)),
			zap.Int("subscribers", dropped),
		)
	}
}
