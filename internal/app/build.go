package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/conversation"
	"github.com/ent0n29/duet/internal/duration"
	"github.com/ent0n29/duet/internal/httpapi"
	"github.com/ent0n29/duet/internal/observability"
	"github.com/ent0n29/duet/internal/persona"
)

type ProviderInfo struct {
	TextGen     string
	Voice       string
	VoiceDetail string
}

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Session   *conversation.Session
	Metrics   *observability.Metrics
	Providers ProviderInfo

	// Cleanup aborts any active run. Call it on shutdown.
	Cleanup func(ctx context.Context) error
}

func Build(_ context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	personas, err := loadPersonas(cfg)
	if err != nil {
		return nil, err
	}

	textSetup, err := resolveTextGenerator(cfg)
	if err != nil {
		return nil, err
	}
	voice, err := resolveVoiceProvider(cfg)
	if err != nil {
		return nil, err
	}

	// Ensure API handlers report the backends actually in use.
	cfg.TextGenProvider = textSetup.resolvedProvider
	cfg.VoiceProvider = voice.resolvedProvider

	sess := conversation.New(conversation.Options{
		Personas:    personas,
		Generator:   textSetup.generator,
		Synthesizer: voice.synthesizer,
		Estimator:   duration.New(),
		Logger:      logger.Named("conversation"),
		Metrics:     metrics,
		WaitBuffer:  cfg.TurnBuffer,
		MaxTurns:    cfg.MaxTurns,
	})
	api := httpapi.New(cfg, sess, metrics, logger.Named("http"))

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Session: sess,
		Metrics: metrics,
		Providers: ProviderInfo{
			TextGen:     textSetup.resolvedProvider,
			Voice:       voice.resolvedProvider,
			VoiceDetail: voice.detail,
		},
		Cleanup: sess.Close,
	}, nil
}

func loadPersonas(cfg config.Config) (persona.Pair, error) {
	if cfg.PersonaFile == "" {
		return persona.Defaults(cfg.PrimaryVoiceID, cfg.SecondaryVoiceID), nil
	}
	pair, err := persona.LoadFile(cfg.PersonaFile)
	if err != nil {
		return persona.Pair{}, fmt.Errorf("persona init failed: %w", err)
	}
	return pair.WithDefaultVoices(cfg.PrimaryVoiceID, cfg.SecondaryVoiceID), nil
}
