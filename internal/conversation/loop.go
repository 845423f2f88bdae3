package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/duration"
	"github.com/ent0n29/duet/internal/observability"
	"github.com/ent0n29/duet/internal/persona"
	"github.com/ent0n29/duet/internal/reliability"
	"github.com/ent0n29/duet/internal/speech"
	"github.com/ent0n29/duet/internal/textgen"
	"github.com/ent0n29/duet/internal/transcript"
)

type endReason string

const (
	endStopped  endReason = "stopped"
	endFailed   endReason = "failed"
	endClosed   endReason = "closed"
	endMaxTurns endReason = "max_turns"
)

func (s *Session) loop(r *run) {
	reason := endStopped
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("conversation loop panic", zap.String("run_id", r.id), zap.Any("panic", rec))
			s.fail(r, fmt.Sprintf("internal error: %v", rec))
			reason = endFailed
		}
		s.finish(r, reason)
	}()

	speaker, listener := r.pair.Initiator, r.pair.Responder
	for ordinal := 0; ; ordinal++ {
		if r.stopRequested() {
			if r.ctx.Err() != nil {
				reason = endClosed
			}
			return
		}
		if s.maxTurns > 0 && ordinal >= s.maxTurns {
			reason = endMaxTurns
			return
		}

		ok, failed := s.turn(r, ordinal, speaker)
		if failed {
			reason = endFailed
			if r.ctx.Err() != nil {
				reason = endClosed
			}
			return
		}
		if !ok {
			if r.ctx.Err() != nil {
				reason = endClosed
			}
			return
		}
		speaker, listener = listener, speaker
	}
}

// turn runs one iteration. It returns ok=false when the run must end after
// this turn and failed=true when generation failed.
func (s *Session) turn(r *run, ordinal int, speaker persona.Persona) (ok bool, failed bool) {
	turnStart := s.clock.Now()

	var text string
	if ordinal == 0 {
		text = speaker.OpeningMessage
	} else {
		s.setState(r, StateGenerating)
		var err error
		text, err = s.generate(r, speaker)
		if err != nil {
			if r.ctx.Err() != nil {
				return false, true
			}
			s.fail(r, fmt.Sprintf("[Error generating response: %v]", err))
			return false, true
		}
	}

	entry := s.transcript.Append(transcript.Turn{
		SpeakerID:   speaker.ID,
		SpeakerName: speaker.Name,
		Text:        text,
		Kind:        transcript.KindUtterance,
		CreatedAt:   s.clock.Now().UTC(),
	})
	s.metrics.Turn(string(transcript.KindUtterance))

	s.setState(r, StateSynthesizing)
	art := s.synthesize(r, text, speaker)

	in := duration.Input{Text: text}
	if art != nil {
		in.Audio, in.Format = art.Audio, art.Format
	}
	est := s.estimator.Estimate(in)
	s.metrics.PacingEstimate(string(est.Method))
	wait := est.Duration + s.waitBuffer

	s.publish(Event{Kind: EventTurn, RunID: r.id, State: StateWaiting, Turn: entry, Audio: art, Wait: wait})
	s.logger.Info("turn appended",
		zap.String("run_id", r.id),
		zap.Int("ordinal", entry.Ordinal),
		zap.String("speaker", entry.SpeakerName),
		zap.Bool("audio", art != nil),
		zap.String("audio_size", audioSize(art)),
		zap.String("pacing_method", string(est.Method)),
		zap.Duration("wait", wait),
	)

	s.setState(r, StateWaiting)
	waitStart := s.clock.Now()
	completed := s.wait(r, wait)
	s.metrics.ObserveStage(observability.StagePacingWait, s.clock.Now().Sub(waitStart))
	s.metrics.ObserveStage(observability.StageTurnTotal, s.clock.Now().Sub(turnStart))
	if !completed || r.stopRequested() {
		return false, false
	}
	return true, false
}

func (s *Session) generate(r *run, speaker persona.Persona) (string, error) {
	history := s.transcript.Snapshot()
	lines := make([]textgen.Line, 0, len(history))
	for _, t := range history {
		if t.Kind != transcript.KindUtterance {
			continue
		}
		lines = append(lines, textgen.Line{Speaker: t.SpeakerName, Text: t.Text})
	}

	started := s.clock.Now()
	text, err := s.generator.Generate(r.ctx, textgen.Request{
		SystemPrompt: speaker.SystemPrompt,
		Context:      lines,
		Speaker:      speaker.Name,
	})
	s.metrics.ObserveStage(observability.StageGeneration, s.clock.Now().Sub(started))
	if err == nil {
		return text, nil
	}

	provider := textgen.ProviderName(s.generator)
	s.recordProviderError(provider, err)
	s.logger.Error("text generation failed",
		zap.String("run_id", r.id),
		zap.String("speaker", speaker.Name),
		zap.String("provider", provider),
		zap.Error(err),
	)
	return "", err
}

// synthesize returns nil when the turn must continue text-only.
func (s *Session) synthesize(r *run, text string, speaker persona.Persona) *speech.Artifact {
	if s.synthesizer == nil {
		return nil
	}
	started := s.clock.Now()
	art, err := s.synthesizer.Synthesize(r.ctx, text, speaker.VoiceID)
	s.metrics.ObserveStage(observability.StageSynthesis, s.clock.Now().Sub(started))
	if err != nil {
		provider := speech.ProviderName(s.synthesizer)
		s.recordProviderError(provider, err)
		s.metrics.Turn("text_only")
		s.logger.Warn("speech synthesis failed, continuing text-only",
			zap.String("run_id", r.id),
			zap.String("speaker", speaker.Name),
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil
	}
	if len(art.Audio) == 0 {
		return nil
	}
	return &art
}

// wait sleeps for d unless the run is stopped first. It reports whether the
// full duration elapsed.
func (s *Session) wait(r *run, d time.Duration) bool {
	if r.stopRequested() {
		return false
	}
	select {
	case <-s.clock.After(d):
		return true
	case <-r.stop:
		return false
	case <-r.ctx.Done():
		return false
	}
}

// fail appends the diagnostic turn and records the error.
func (s *Session) fail(r *run, msg string) {
	entry := s.transcript.Append(transcript.Turn{
		SpeakerID:   transcript.SystemSpeakerID,
		SpeakerName: "System",
		Text:        msg,
		Kind:        transcript.KindError,
		CreatedAt:   s.clock.Now().UTC(),
	})
	s.metrics.Turn(string(transcript.KindError))

	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()

	s.publish(Event{Kind: EventTurn, RunID: r.id, State: StateStopped, Turn: entry})
	s.publish(Event{Kind: EventError, RunID: r.id, State: StateStopped, Err: msg})
}

func (s *Session) finish(r *run, reason endReason) {
	r.cancel()

	// The stopped event goes out while the run still owns the session so a
	// following Start cannot publish ahead of it.
	s.mu.Lock()
	s.state = StateStopped
	s.stoppedAt = s.clock.Now().UTC()
	turns := s.transcript.Len()
	s.publish(Event{Kind: EventState, RunID: r.id, State: StateStopped})
	s.current = nil
	s.mu.Unlock()

	s.metrics.RunEnded(string(reason))
	s.logger.Info("conversation stopped",
		zap.String("run_id", r.id),
		zap.String("reason", string(reason)),
		zap.Int("turns", turns),
	)
	close(r.done)
}

func (s *Session) recordProviderError(provider string, err error) {
	code := reliability.ErrorCode(err)
	if errors.Is(err, textgen.ErrEmptyResponse) {
		code = "empty_response"
	}
	s.metrics.ProviderError(provider, code)
}

func audioSize(art *speech.Artifact) string {
	if art == nil {
		return "0 B"
	}
	return humanize.Bytes(uint64(len(art.Audio)))
}
