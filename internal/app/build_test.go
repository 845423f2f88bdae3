package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/persona"
	"github.com/ent0n29/duet/internal/speech"
	"github.com/ent0n29/duet/internal/textgen"
)

func baseConfig() config.Config {
	return config.Config{
		BindAddr:            ":0",
		MetricsNamespace:    "test_app",
		TextGenProvider:     "auto",
		VoiceProvider:       "auto",
		ReplayRatePerMinute: 30,
		Speed:               1.15,
		Stability:           0.5,
		SimilarityBoost:     0.75,
	}
}

func TestBuildWithoutCredentialsIsNotConfigured(t *testing.T) {
	res, err := Build(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if res.Session.Configured() {
		t.Fatalf("Configured() = true, want false without text generation key")
	}
	if res.Providers.TextGen != "unconfigured" || res.Providers.Voice != "mock" {
		t.Fatalf("Providers = %+v", res.Providers)
	}
	if got := res.Session.Personas().Initiator.Name; got != "Priya Sharma" {
		t.Fatalf("default initiator = %q, want Priya Sharma", got)
	}
}

func TestResolveTextGeneratorPrefersFallbackWithBothKeys(t *testing.T) {
	cfg := baseConfig()
	cfg.GeminiAPIKey = "g"
	cfg.OpenAIAPIKey = "o"
	setup, err := resolveTextGenerator(cfg)
	if err != nil {
		t.Fatalf("resolveTextGenerator() error = %v", err)
	}
	if _, ok := setup.generator.(*textgen.FallbackGenerator); !ok {
		t.Fatalf("generator = %T, want *textgen.FallbackGenerator", setup.generator)
	}
}

func TestResolveRejectsExplicitProviderWithoutKey(t *testing.T) {
	cfg := baseConfig()
	cfg.TextGenProvider = "gemini"
	if _, err := resolveTextGenerator(cfg); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("resolveTextGenerator() error = %v, want missing key error", err)
	}
	cfg = baseConfig()
	cfg.VoiceProvider = "elevenlabs"
	if _, err := resolveVoiceProvider(cfg); err == nil || !strings.Contains(err.Error(), "ELEVEN_API_KEY") {
		t.Fatalf("resolveVoiceProvider() error = %v, want missing key error", err)
	}
}

func TestResolveVoiceAutoWrapsElevenLabsInFailover(t *testing.T) {
	cfg := baseConfig()
	cfg.ElevenLabsAPIKey = "xi"
	setup, err := resolveVoiceProvider(cfg)
	if err != nil {
		t.Fatalf("resolveVoiceProvider() error = %v", err)
	}
	if _, ok := setup.synthesizer.(*speech.FailoverSynthesizer); !ok {
		t.Fatalf("synthesizer = %T, want *speech.FailoverSynthesizer", setup.synthesizer)
	}
}

func TestBuildLoadsPersonaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	body := `initiator:
  id: agent
  name: Agent
  system_prompt: Be polite.
  opening_message: Good morning!
responder:
  id: customer
  name: Customer
  system_prompt: Be busy.
  voice_id: custom-voice
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg := baseConfig()
	cfg.PersonaFile = path
	cfg.TextGenProvider = "mock"
	cfg.PrimaryVoiceID = "primary"

	res, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := res.Session.Personas()
	want := persona.Pair{
		Initiator: persona.Persona{ID: "agent", Name: "Agent", SystemPrompt: "Be polite.", OpeningMessage: "Good morning!", VoiceID: "primary"},
		Responder: persona.Persona{ID: "customer", Name: "Customer", SystemPrompt: "Be busy.", VoiceID: "custom-voice"},
	}
	if got != want {
		t.Fatalf("Personas() = %+v, want %+v", got, want)
	}
	if !res.Session.Configured() {
		t.Fatalf("Configured() = false with mock generator")
	}
}
