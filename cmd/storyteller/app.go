package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storyteller/cmd/storyteller/ui"
	"storyteller/internal/config"
	"storyteller/internal/gen"
	"storyteller/internal/logging"
	"storyteller/internal/observability"
	"storyteller/internal/story"
)

func createApp() (ui.Model, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return ui.Model{}, nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracingConfig := observability.LoadConfigFromEnv()
	tracerProvider, err := observability.InitTracing(ctx, tracingConfig)
	if err != nil {
		logger.Warn("failed to initialize tracing", zap.Error(err))
		tracerProvider = nil
	} else if tracerProvider.IsEnabled() {
		logger.Info("OpenTelemetry tracing enabled", zap.String("endpoint", tracingConfig.Endpoint))
	}

	textService := gen.NewTextService(cfg.OpenAIKey, cfg.Model, cfg.RequestTimeout, logger)

	imageService, err := gen.NewImageService(gen.ImageConfig{
		APIKey:   cfg.StabilityKey,
		BaseURL:  cfg.ImageBaseURL,
		MediaDir: cfg.MediaDir,
		Timeout:  cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize image service: %w", err)
	}
	if cfg.StabilityKey == "" {
		logger.Warn("STABILITY_API_KEY not set, chapters will not be illustrated")
	}

	speechService, err := gen.NewSpeechService(gen.SpeechConfig{
		APIKey:   cfg.ElevenLabsKey,
		BaseURL:  cfg.SpeechBaseURL,
		VoiceID:  cfg.VoiceID,
		MediaDir: cfg.MediaDir,
		Timeout:  cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize speech service: %w", err)
	}
	if cfg.ElevenLabsKey == "" {
		logger.Warn("ELEVENLABS_API_KEY not set, narration is disabled")
	}

	// Turn auditing is best effort; the game runs without it.
	turnLog, err := logging.NewTurnLog(cfg.TurnLogPath)
	if err != nil {
		logger.Warn("failed to open turn log, auditing disabled", zap.Error(err))
		turnLog = nil
	}

	orch := story.NewOrchestrator(
		gen.NewMemoTextGenerator(textService),
		gen.NewMemoImageGenerator(imageService),
		speechService,
		cfg.Model,
		turnLog,
		logger,
	)

	model := ui.NewModel(orch, logger)

	cleanup := func() {
		if turnLog != nil {
			turnLog.Close()
		}
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
		logger.Sync()
	}

	return model, cleanup, nil
}
