package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partyline/partyline/internal/api"
	"github.com/partyline/partyline/internal/assets"
	"github.com/partyline/partyline/internal/call"
	"github.com/partyline/partyline/internal/config"
	"github.com/partyline/partyline/internal/database"
	"github.com/partyline/partyline/internal/hubitat"
	"github.com/partyline/partyline/internal/metrics"
	"github.com/partyline/partyline/internal/retention"
	"github.com/partyline/partyline/internal/spotify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting partyline",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"personas", cfg.Personas,
	)

	// Open database and run migrations.
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions := database.NewCallSessionRepository(db)
	cursor := database.NewPersonaCursorRepository(db)
	settings := database.NewGlobalSettingsRepository(db)
	recordings := database.NewRecordingRepository(db)

	// Collaborator services.
	signer, err := assets.NewSigner(context.Background(), assets.SignerConfig{
		Bucket:          cfg.ClipBucket,
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		slog.Error("failed to create clip signer", "error", err)
		os.Exit(1)
	}

	music := spotify.NewClient(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RefreshToken: cfg.SpotifyRefreshToken,
	}, logger)

	devices := hubitat.New(hubitat.Config{
		BaseURL:     cfg.HubitatURL,
		AppID:       cfg.HubitatAppID,
		AccessToken: cfg.HubitatAccessToken,
		DeviceIDs:   cfg.HubitatDeviceIDList(),
	}, logger)
	defer devices.Close()

	machine := call.NewMachine(
		sessions, cursor, settings, recordings,
		music, devices, signer,
		call.Config{
			Personas:        cfg.PersonaList(),
			AccessCode:      cfg.AccessCode,
			SurpriseNumbers: cfg.SurpriseNumberList(),
			SettingsID:      cfg.SettingsID,
		},
		logger,
	)

	// Metrics registry: scrape-time collector plus webhook counters.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(sessions, recordings, time.Now()),
		metrics.WebhookEvents,
	)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// Background sweep of stale unpublished recordings.
	sweeper := retention.NewSweeper(recordings, cfg.RetentionDays, "", logger)
	if err := sweeper.Start(); err != nil {
		slog.Error("failed to start retention sweeper", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	// HTTP server using the api package.
	handler := api.NewServer(machine, devices, metricsHandler, cfg, logger)
	defer handler.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("partyline stopped")
}
