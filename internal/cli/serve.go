// serve.go implements "wayfinder serve", the long-running service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/wayfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/wayfinder/internal/api"
	"github.com/MikeSquared-Agency/wayfinder/internal/config"
	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/extractor"
	"github.com/MikeSquared-Agency/wayfinder/internal/hermes"
	"github.com/MikeSquared-Agency/wayfinder/internal/interview"
	"github.com/MikeSquared-Agency/wayfinder/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and NATS service",
	Long: `Start the wayfinder service. With DATABASE_URL set it runs stored
interview sessions and talks to NATS; without it only the stateless
evaluation endpoints are served.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("wayfinder starting", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	var (
		sessions api.Sessions
		bus      api.Bus
	)
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, serving stateless endpoints only")
	} else {
		svc, hermesClient, cleanup, err := startSessions(ctx, cfg, eng)
		if err != nil {
			return err
		}
		defer cleanup()
		sessions, bus = svc, hermesClient
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, eng, sessions, bus)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	slog.Info("wayfinder ready", "port", cfg.Port, "sessions", sessions != nil)

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	slog.Info("wayfinder stopped")
	return nil
}

// startSessions wires the stateful stack: Postgres, Anthropic, extractor,
// NATS and the interview service.
func startSessions(ctx context.Context, cfg config.Config, eng *engine.Engine) (*interview.Service, *hermes.Client, func(), error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, nil, nil, errors.New("ANTHROPIC_API_KEY is required when DATABASE_URL is set")
	}

	// Database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	slog.Info("database connected")

	// Anthropic client
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", llm.Model())

	ext := extractor.New(llm, slog.Default())

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	slog.Info("NATS connected", "url", cfg.NatsURL)

	svc := interview.New(db, eng, llm, ext, hermesClient, slog.Default())

	cleanup := func() {
		hermesClient.Close()
		db.Close()
	}

	if err := hermesClient.Subscribe(hermes.SubjectVoteCast, svc.HandleVoteCast); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	if err := hermesClient.Subscribe(hermes.SubjectSuggestionsGenerated, svc.HandleSuggestionsGenerated); err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	// Announce registration
	if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	return svc, hermesClient, cleanup, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
