package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/randomtoy/mysticorb/internal/adapters/cards"
	"github.com/randomtoy/mysticorb/internal/adapters/catalog"
	"github.com/randomtoy/mysticorb/internal/adapters/decks"
	httpadapter "github.com/randomtoy/mysticorb/internal/adapters/http"
	"github.com/randomtoy/mysticorb/internal/adapters/llm/gemini"
	"github.com/randomtoy/mysticorb/internal/adapters/llm/openrouter"
	"github.com/randomtoy/mysticorb/internal/app"
	"github.com/randomtoy/mysticorb/internal/config"
	"github.com/randomtoy/mysticorb/internal/ports"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # Gemini for everything
  GEMINI_API_KEY=... tarotd serve

  # OpenRouter for interpretations, Gemini for speech and artwork
  LLM_PROVIDER=openrouter OPENROUTER_API_KEY=... GEMINI_API_KEY=... tarotd serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	cardStore := cards.New(filepath.Join(cfg.DataDir, "cards"), logger)
	if err := cardStore.Init(); err != nil {
		return err
	}
	defer cardStore.Close()

	deckStore := decks.New(filepath.Join(cfg.DataDir, "decks.db"), logger)
	if err := deckStore.Init(); err != nil {
		return err
	}
	defer deckStore.Close()

	httpClient := &http.Client{Timeout: cfg.LLMTimeout}
	geminiClient, err := gemini.NewClient(ctx, gemini.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return err
	}
	media := gemini.NewMediaClient(geminiClient, gemini.MediaConfig{
		SpeechModel: cfg.SpeechModel,
		Voice:       cfg.SpeechVoice,
		ImageModel:  cfg.ImageModel,
	}, logger)

	var interpreter ports.Interpreter
	switch cfg.LLMProvider {
	case config.ProviderOpenRouter:
		interpreter = openrouter.NewClient(httpClient, cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.LLMModel, logger)
	default:
		interpreter = gemini.NewInterpreter(geminiClient, cfg.TextModel, logger)
	}

	cat := catalog.NewEmbeddedStore()
	builder := app.NewDeckBuilder(cat, cardStore, deckStore, logger)
	forge := app.NewCardForge(media, cardStore, builder, logger)
	sessions := app.NewSessions(app.ReadingDeps{
		Catalog:     cat,
		Interpreter: interpreter,
		Speech:      media,
		RNG:         stdRNG{},
		Now:         time.Now,
		RevealDelay: cfg.RevealDelay,
		Logger:      logger,
	}, app.SessionLimits{IdleTTL: cfg.ReadingIdleTTL, Max: cfg.MaxReadings})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))

	handler := httpadapter.NewHandler(httpadapter.Deps{
		Catalog:  cat,
		Cards:    cardStore,
		Builder:  builder,
		Forge:    forge,
		Sessions: sessions,
		Limiter:  httpadapter.NewRateLimiter(cfg.CardRatePerMinute, 2),
		Logger:   logger,
	})
	handler.Register(e)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "provider", cfg.LLMProvider)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
