package app

import (
	"fmt"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/speech"
)

type voiceSetup struct {
	synthesizer      speech.Synthesizer
	resolvedProvider string
	detail           string
}

func speechSettings(cfg config.Config) speech.Settings {
	return speech.Settings{
		Stability:       cfg.Stability,
		SimilarityBoost: cfg.SimilarityBoost,
		Style:           cfg.Style,
		Speed:           cfg.Speed,
	}.Clamp()
}

func resolveVoiceProvider(cfg config.Config) (voiceSetup, error) {
	newElevenLabs := func() *speech.ElevenLabsSynthesizer {
		return speech.NewElevenLabsSynthesizer(speech.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			BaseURL:      cfg.ElevenLabsBaseURL,
			ModelID:      cfg.ElevenLabsTTSModel,
			OutputFormat: cfg.ElevenLabsTTSOutputFormat,
			Settings:     speechSettings(cfg),
		})
	}

	switch cfg.VoiceProvider {
	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return voiceSetup{}, fmt.Errorf("VOICE_PROVIDER=elevenlabs but ELEVEN_API_KEY is not set")
		}
		el := newElevenLabs()
		return voiceSetup{
			synthesizer:      el,
			resolvedProvider: "elevenlabs",
			detail:           "elevenlabs " + el.OutputFormat(),
		}, nil
	case "mock":
		return voiceSetup{
			synthesizer:      speech.NewMockSynthesizer(),
			resolvedProvider: "mock",
			detail:           "mock (silent wav)",
		}, nil
	case "none":
		return voiceSetup{resolvedProvider: "none", detail: "text only"}, nil
	default:
		if cfg.ElevenLabsAPIKey == "" {
			return voiceSetup{
				synthesizer:      speech.NewMockSynthesizer(),
				resolvedProvider: "mock",
				detail:           "mock (ELEVEN_API_KEY not set)",
			}, nil
		}
		// Silent pacing keeps the dialogue flowing if the quota runs out.
		el := newElevenLabs()
		return voiceSetup{
			synthesizer:      speech.NewFailoverSynthesizer(el, speech.NewMockSynthesizer(), ""),
			resolvedProvider: "elevenlabs",
			detail:           "elevenlabs " + el.OutputFormat() + " with mock failover",
		}, nil
	}
}
