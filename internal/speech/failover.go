package speech

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// FailoverSynthesizer prefers the primary backend and switches to the
// fallback when the primary fails. Once the fallback succeeds it stays active
// until it fails; then the primary is retried.
type FailoverSynthesizer struct {
	primary         Synthesizer
	fallback        Synthesizer
	fallbackVoiceID string
	fallbackActive  atomic.Bool
}

func NewFailoverSynthesizer(primary, fallback Synthesizer, fallbackVoiceID string) *FailoverSynthesizer {
	return &FailoverSynthesizer{
		primary:         primary,
		fallback:        fallback,
		fallbackVoiceID: strings.TrimSpace(fallbackVoiceID),
	}
}

func (s *FailoverSynthesizer) Name() string {
	if s.fallbackActive.Load() {
		return ProviderName(s.fallback)
	}
	return ProviderName(s.primary)
}

// FallbackActive reports whether calls currently go to the fallback.
func (s *FailoverSynthesizer) FallbackActive() bool {
	return s.fallbackActive.Load()
}

func (s *FailoverSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (Artifact, error) {
	if s.fallbackActive.Load() {
		art, fbErr := s.synthesizeFallback(ctx, text, voiceID)
		if fbErr == nil {
			return art, nil
		}
		art, prErr := s.primary.Synthesize(ctx, text, voiceID)
		if prErr == nil {
			s.fallbackActive.Store(false)
			return art, nil
		}
		return Artifact{}, fmt.Errorf("tts fallback failed: %v; tts primary failed: %w", fbErr, prErr)
	}

	art, prErr := s.primary.Synthesize(ctx, text, voiceID)
	if prErr == nil {
		return art, nil
	}
	if ctx.Err() != nil {
		return Artifact{}, prErr
	}
	art, fbErr := s.synthesizeFallback(ctx, text, voiceID)
	if fbErr != nil {
		return Artifact{}, fmt.Errorf("tts primary failed: %v; tts fallback failed: %w", prErr, fbErr)
	}
	s.fallbackActive.Store(true)
	return art, nil
}

func (s *FailoverSynthesizer) synthesizeFallback(ctx context.Context, text, voiceID string) (Artifact, error) {
	if s.fallbackVoiceID != "" {
		voiceID = s.fallbackVoiceID
	}
	return s.fallback.Synthesize(ctx, text, voiceID)
}
