package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/dnscache"

	gateway "github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/chat"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/config"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/provider"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/provider/openai"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/ratelimit"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/server"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/storage/sqlite"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/telemetry"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/transcribe"
	"github.com/AgriCapital-Web/vitrine-agricapital-sub001/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting assistant gateway", "version", version, "addr", cfg.Server.Addr)

	// Open audit database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Telemetry
	var (
		metrics  *telemetry.Metrics
		registry *prometheus.Registry
	)
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(registry)
	}
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(context.Background(),
			cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	// Upstream transport with cached DNS and the stream-open deadline.
	resolver := &dnscache.Resolver{}
	go refreshDNS(resolver)
	transport := provider.NewTransport(resolver, true, cfg.Upstream.OpenTimeout)

	upstreamClient := buildUpstreamClient(cfg.Upstream, transport)
	streamer := openai.New(cfg.Upstream.BaseURL, upstreamClient)

	// Speech-to-text, optional. When absent, voice messages degrade to
	// a transcription-failed instruction.
	var transcriber gateway.Transcriber
	if cfg.Transcription.Enabled() {
		sttClient := provider.NewAPIKeyClient(transport, cfg.Transcription.APIKey)
		stt := transcribe.New(cfg.Transcription.BaseURL, cfg.Transcription.Model,
			cfg.Transcription.Timeout, sttClient)
		cached, err := transcribe.NewCached(stt, cfg.Transcription.CacheSize, cfg.Transcription.CacheTTL)
		if err != nil {
			return err
		}
		transcriber = cached
	}

	chatSvc := chat.NewService(chat.Config{
		Model:           cfg.Upstream.Model,
		VisionModel:     cfg.Upstream.VisionModel,
		HistoryWindow:   cfg.Assistant.HistoryWindow,
		MaxMessageChars: cfg.Assistant.MaxMessageChars,
		DefaultLanguage: cfg.Assistant.DefaultLanguage,
	}, transcriber, metrics)

	// Audit recorder runs detached from the request path.
	recorder := worker.NewAuditRecorder(store, metrics)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		if err := worker.NewRunner(recorder).Run(workerCtx); err != nil {
			slog.Error("worker runner failed", "error", err)
		}
	}()

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Ceiling)

	handler := server.New(server.Deps{
		Chat:       chatSvc,
		Streamer:   streamer,
		Limiter:    limiter,
		Audit:      recorder,
		ReadyCheck: store.Ping,
		Metrics:    metrics,
		Registry:   registry,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("assistant gateway ready", "addr", cfg.Server.Addr)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		stopWorkers()
		<-workersDone
		return err
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		stopWorkers()
		<-workersDone
		return err
	}

	// Stop the audit recorder last so in-flight records drain.
	stopWorkers()
	<-workersDone

	slog.Info("assistant gateway stopped")
	return nil
}

// buildUpstreamClient wires auth into the transport chain: bearer API
// key by default, OAuth2 client credentials when configured.
func buildUpstreamClient(cfg config.UpstreamConfig, transport http.RoundTripper) *http.Client {
	if cfg.Auth != nil && cfg.Auth.Type == "oauth" {
		return provider.NewOAuthClient(context.Background(), transport,
			cfg.Auth.TokenURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret, cfg.Auth.Scopes)
	}
	return provider.NewAPIKeyClient(transport, cfg.APIKey)
}

// refreshDNS re-resolves cached entries periodically.
func refreshDNS(resolver *dnscache.Resolver) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		resolver.Refresh(true)
	}
}
