package app

import (
	"fmt"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/textgen"
)

type textgenSetup struct {
	generator        textgen.Generator
	resolvedProvider string
}

// resolveTextGenerator returns a nil generator when no credentials exist in
// auto mode. The session then refuses to start.
func resolveTextGenerator(cfg config.Config) (textgenSetup, error) {
	gemini := func() textgen.Generator {
		return textgen.NewGeminiGenerator(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	openai := func() textgen.Generator {
		return textgen.NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	switch cfg.TextGenProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return textgenSetup{}, fmt.Errorf("TEXTGEN_PROVIDER=gemini but GEMINI_API_KEY is not set")
		}
		return textgenSetup{generator: gemini(), resolvedProvider: "gemini"}, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return textgenSetup{}, fmt.Errorf("TEXTGEN_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return textgenSetup{generator: openai(), resolvedProvider: "openai"}, nil
	case "mock":
		return textgenSetup{generator: textgen.NewMockGenerator(), resolvedProvider: "mock"}, nil
	default:
		hasGemini, hasOpenAI := cfg.GeminiAPIKey != "", cfg.OpenAIAPIKey != ""
		switch {
		case hasGemini && hasOpenAI:
			return textgenSetup{
				generator:        textgen.NewFallbackGenerator(gemini(), openai()),
				resolvedProvider: "gemini+openai",
			}, nil
		case hasGemini:
			return textgenSetup{generator: gemini(), resolvedProvider: "gemini"}, nil
		case hasOpenAI:
			return textgenSetup{generator: openai(), resolvedProvider: "openai"}, nil
		default:
			return textgenSetup{resolvedProvider: "unconfigured"}, nil
		}
	}
}
