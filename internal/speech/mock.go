package speech

import (
	"context"
	"strings"

	"github.com/ent0n29/duet/internal/audio"
)

const mockSampleRate = 16000

// MockSynthesizer returns silent WAV audio whose length follows the word
// count, so pacing behaves like real speech without network access.
type MockSynthesizer struct {
	// WordsPerSecond controls the clip length. Zero means 2.5.
	WordsPerSecond float64
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{WordsPerSecond: 2.5}
}

func (s *MockSynthesizer) Name() string { return "mock" }

func (s *MockSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	wps := s.WordsPerSecond
	if wps <= 0 {
		wps = 2.5
	}
	words := len(strings.Fields(text))
	samples := int(float64(words) / wps * mockSampleRate)
	wav, err := audio.EncodeWAVPCM16LE(make([]byte, samples*2), mockSampleRate)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Audio: wav, Format: "wav", VoiceID: voiceID}, nil
}
