// Package speech turns utterance text into playable audio.
package speech

import (
	"context"
	"strings"
)

// Artifact is transient audio for one utterance. It is never persisted.
type Artifact struct {
	Audio   []byte
	Format  string
	VoiceID string
}

// Synthesizer renders text with a voice. Implementations do not retry.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (Artifact, error)
}

// Settings tune voice rendering. They are fixed for a whole run.
type Settings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
}

// DefaultSettings favours quick, steady delivery.
func DefaultSettings() Settings {
	return Settings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0,
		Speed:           1.15,
	}
}

// Clamp forces every field into the range the provider accepts.
func (s Settings) Clamp() Settings {
	s.Stability = clamp(s.Stability, 0, 1)
	s.SimilarityBoost = clamp(s.SimilarityBoost, 0, 1)
	s.Style = clamp(s.Style, 0, 1)
	if s.Speed == 0 {
		s.Speed = 1
	}
	s.Speed = clamp(s.Speed, 0.7, 1.2)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Named is implemented by synthesizers that report a provider label.
type Named interface {
	Name() string
}

// ProviderName returns the label used in logs and metrics.
func ProviderName(s Synthesizer) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
