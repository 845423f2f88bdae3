package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ent0n29/duet/internal/reliability"
)

const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	DefaultModelID           = "eleven_turbo_v2_5"
	DefaultOutputFormat      = "mp3_44100_128"
)

var errEmptyAudio = errors.New("empty audio response")

type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	ModelID      string
	OutputFormat string
	Settings     Settings
}

// ElevenLabsSynthesizer calls the text-to-speech REST endpoint and returns
// the whole clip in memory.
type ElevenLabsSynthesizer struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig) *ElevenLabsSynthesizer {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultElevenLabsBaseURL
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = DefaultModelID
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	cfg.Settings = cfg.Settings.Clamp()
	return &ElevenLabsSynthesizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *ElevenLabsSynthesizer) Name() string { return "elevenlabs" }

func (s *ElevenLabsSynthesizer) OutputFormat() string { return s.cfg.OutputFormat }

type ttsRequest struct {
	Text          string   `json:"text"`
	ModelID       string   `json:"model_id"`
	VoiceSettings Settings `json:"voice_settings"`
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (Artifact, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return Artifact{}, &reliability.ProviderError{Provider: s.Name(), Code: "no_voice", Err: errors.New("voice id is required")}
	}
	payload, err := json.Marshal(ttsRequest{
		Text:          normalizeText(text),
		ModelID:       s.cfg.ModelID,
		VoiceSettings: s.cfg.Settings,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal request: %w", err)
	}

	q := url.Values{}
	q.Set("output_format", s.cfg.OutputFormat)
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?%s", s.cfg.BaseURL, url.PathEscape(voiceID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Artifact{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		return Artifact{}, reliability.TransportError(s.Name(), err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Artifact{}, reliability.HTTPStatusError(s.Name(), res.StatusCode, string(body))
	}
	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return Artifact{}, reliability.TransportError(s.Name(), err)
	}
	if len(audio) == 0 {
		return Artifact{}, &reliability.ProviderError{Provider: s.Name(), Code: "empty_audio", Err: errEmptyAudio}
	}
	return Artifact{Audio: audio, Format: s.cfg.OutputFormat, VoiceID: voiceID}, nil
}
