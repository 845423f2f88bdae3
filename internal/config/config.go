package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/subosito/gotenv"
)

// DefaultDotEnv is read before the environment is parsed. Values already set
// in the process environment win over the file.
const DefaultDotEnv = ".env"

// Config contains all runtime settings for the dialogue service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"duet"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`
	// TurnBuffer is the pause added after every estimated playback.
	TurnBuffer time.Duration `env:"APP_TURN_BUFFER" envDefault:"500ms"`
	// MaxTurns ends runs after that many transcript entries; 0 is unbounded.
	MaxTurns int `env:"APP_MAX_TURNS" envDefault:"0"`

	PersonaFile string `env:"PERSONA_FILE"`

	TextGenProvider string `env:"TEXTGEN_PROVIDER" envDefault:"auto"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL   string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	VoiceProvider             string  `env:"VOICE_PROVIDER" envDefault:"auto"`
	ElevenLabsAPIKey          string  `env:"ELEVEN_API_KEY"`
	ElevenLabsBaseURL         string  `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
	ElevenLabsTTSModel        string  `env:"ELEVENLABS_TTS_MODEL_ID" envDefault:"eleven_turbo_v2_5"`
	ElevenLabsTTSOutputFormat string  `env:"ELEVENLABS_TTS_OUTPUT_FORMAT" envDefault:"mp3_44100_128"`
	PrimaryVoiceID            string  `env:"ELEVENLABS_PRIMARY_VOICE_ID" envDefault:"LWFgMHXb8m0uANBUpzlq"`
	SecondaryVoiceID          string  `env:"ELEVENLABS_SECONDARY_VOICE_ID" envDefault:"1wR0NchtHfKujrd8xFsX"`
	Stability                 float64 `env:"ELEVENLABS_STABILITY" envDefault:"0.5"`
	SimilarityBoost           float64 `env:"ELEVENLABS_SIMILARITY_BOOST" envDefault:"0.75"`
	Style                     float64 `env:"ELEVENLABS_STYLE" envDefault:"0"`
	Speed                     float64 `env:"ELEVENLABS_SPEED" envDefault:"1.15"`

	ReplayRatePerMinute int `env:"REPLAY_RATE_PER_MINUTE" envDefault:"30"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads DefaultDotEnv when present, then the environment.
func Load() (Config, error) {
	return LoadFrom(DefaultDotEnv)
}

// LoadFrom is Load with an explicit dotenv path. An empty path skips it.
func LoadFrom(dotenv string) (Config, error) {
	if dotenv = strings.TrimSpace(dotenv); dotenv != "" {
		if err := gotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.TextGenProvider = strings.ToLower(strings.TrimSpace(c.TextGenProvider))
	c.VoiceProvider = strings.ToLower(strings.TrimSpace(c.VoiceProvider))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.ElevenLabsAPIKey = strings.TrimSpace(c.ElevenLabsAPIKey)
	c.PersonaFile = strings.TrimSpace(c.PersonaFile)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.BindAddr) == "" {
		return fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.TurnBuffer <= 0 {
		return fmt.Errorf("APP_TURN_BUFFER must be positive")
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("APP_MAX_TURNS must be >= 0")
	}
	if c.ReplayRatePerMinute <= 0 {
		return fmt.Errorf("REPLAY_RATE_PER_MINUTE must be positive")
	}
	switch c.TextGenProvider {
	case "auto", "gemini", "openai", "mock":
	default:
		return fmt.Errorf("TEXTGEN_PROVIDER must be one of auto, gemini, openai, mock")
	}
	switch c.VoiceProvider {
	case "auto", "elevenlabs", "mock", "none":
	default:
		return fmt.Errorf("VOICE_PROVIDER must be one of auto, elevenlabs, mock, none")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}
