package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"voice-interrupt-filter/internal/api/ws"
	"voice-interrupt-filter/internal/app"
	"voice-interrupt-filter/internal/config"
	"voice-interrupt-filter/internal/events"
	router "voice-interrupt-filter/internal/http"
	"voice-interrupt-filter/internal/observability"
	"voice-interrupt-filter/internal/observability/logging"
	"voice-interrupt-filter/internal/service/session"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	logging.Init(logCfg)

	// Kafka publisher with separate topics for admitted and suppressed transcripts
	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicPartial:  cfg.Kafka.TopicPartial,
		TopicFinal:    cfg.Kafka.TopicFinal,
		TopicFiltered: cfg.Kafka.TopicFiltered,
		Principal:     cfg.Kafka.Principal,
	})
	defer publisher.Close()

	manager := session.NewManager(cfg.Filter, publisher, session.Limits{
		MaxPartials: cfg.SessionLimits.MaxPartials,
		MaxDuration: cfg.SessionLimits.MaxDuration,
	})

	ingest := ws.NewHandler(manager, cfg.STT)

	apiServer := &http.Server{
		Addr:        ":" + cfg.Service.HTTPPort,
		Handler:     router.NewRouter(manager, ingest),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	metricsServer := observability.NewServer(":" + cfg.Service.MetricsPort)
	metricsServer.Start()

	go func() {
		log.Info().Str("addr", apiServer.Addr).Msg("Voice interrupt filter listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("API server shutdown error")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Metrics server shutdown error")
	}
	manager.CloseAll()
	application.Shutdown()
}
