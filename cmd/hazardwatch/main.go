package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/traffic-hazard-watch/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/traffic-hazard-watch/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-hazard-watch/internal/config"
	"github.com/couchcryptid/traffic-hazard-watch/internal/engine"
	"github.com/couchcryptid/traffic-hazard-watch/internal/feed"
	"github.com/couchcryptid/traffic-hazard-watch/internal/observability"
	"github.com/couchcryptid/traffic-hazard-watch/internal/poller"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	points, err := cfg.ReferencePoints()
	if err != nil {
		logger.Error("failed to build reference points", "error", err)
		os.Exit(1)
	}

	client := feed.NewClient(cfg.FeedAPIKey, cfg.FeedBaseURL, cfg.FeedTimeout, cfg.FeedRequestDelay, logger, metrics)
	tracker := engine.NewTracker(nil, logger, metrics)

	// The slog sink is always on; Kafka is added when configured.
	sink := engine.LogSink(logger)
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sink = engine.MultiSink(sink, kafkaWriter)
		logger.Info("kafka event sink enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := poller.New(poller.Params{
		Fetcher:    client,
		Points:     poller.StaticPoints(points),
		Tracker:    tracker,
		Sink:       sink,
		Categories: cfg.FeedCategories,
		Interval:   cfg.PollInterval,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- p.Run(ctx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-pollErr:
		// The loop only returns early with an error on a credential
		// failure; shut down so the operator notices.
		if err != nil {
			logger.Error("poller stopped", "error", err)
			exitCode = 1
		}
		stop()
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}
