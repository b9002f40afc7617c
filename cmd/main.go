package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-pubsub-dispatcher/config"
	"job-pubsub-dispatcher/dispatch"
	"job-pubsub-dispatcher/health"
	"job-pubsub-dispatcher/metrics"
	"job-pubsub-dispatcher/queues"
	qpubsub "job-pubsub-dispatcher/queues/pubsub"
	"job-pubsub-dispatcher/store/postgres"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "source"

func setLogger() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	setLogger()
	log.Info().Msgf("Starting job-pubsub-dispatcher version: %s", version)
	// Load config
	cfg := config.Load()
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	// Preflight required configuration
	if cfg.GoogleProjectID == "" {
		log.Fatal().Msg("missing Google project id; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or DISPATCH_PUBSUB_PROJECT_ID")
	}
	if cfg.Subscription == "" {
		log.Fatal().Msg("missing Pub/Sub subscription; set JOB_EVENT_SUBSCRIPTION or DISPATCH_PUBSUB_SUBSCRIPTION")
	}
	if cfg.NotifyTopic == "" {
		log.Fatal().Msg("missing Pub/Sub topic; set NOTIFY_TOPIC or DISPATCH_PUBSUB_TOPIC")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("missing database DSN; set DATABASE_URL")
	}

	// Context and shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Worker location/specialization store (read-only)
	st, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to worker location store")
	}
	defer st.Close()

	// Metrics and health HTTP server
	mux := http.NewServeMux()
	metrics.Register(mux)
	health.Register(mux, st)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting metrics/health server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	if cfg.CredentialsFile != "" {
		log.Info().Str("credsFile", cfg.CredentialsFile).Msg("using explicit Google credentials file")
	} else {
		log.Info().Msg("using default Google credentials (in-cluster or ambient)")
	}
	notifier := qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.NotifyTopic, cfg.CredentialsFile)
	dispatcher := dispatch.New(st, notifier, dispatch.Policy{
		SearchRadiiKm:   cfg.SearchRadiiKm,
		FreshnessWindow: cfg.FreshnessWindow,
		InitialWait:     cfg.InitialWait,
		RetryWait:       cfg.RetryWait,
		RunTimeout:      cfg.RunTimeout,
		MaxWorkers:      cfg.MaxWorkers,
	})
	subscriber := qpubsub.NewSubscriber(cfg.GoogleProjectID, cfg.Subscription, cfg.CredentialsFile)

	// Start subscriber loop
	go func() {
		log.Info().Str("subscription", cfg.Subscription).Msg("starting subscriber loop")
		if err := subscriber.Start(ctx, func(ctx context.Context, job *queues.JobEvent) error {
			return dispatcher.Handle(ctx, job)
		}); err != nil {
			// Non-recoverable: if we can't receive from Pub/Sub, terminate the process
			log.Fatal().Err(err).Msg("subscriber exited with fatal error; shutting down")
		}
	}()

	// Block until shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
