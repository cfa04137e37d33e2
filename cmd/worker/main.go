package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openrits/openrits/internal/messaging"
	"github.com/openrits/openrits/internal/server"
	"github.com/openrits/openrits/internal/telemetry"
	"github.com/openrits/openrits/internal/version"
	"github.com/openrits/openrits/internal/worker"
)

const (
	serviceName   = "worker"
	eventsTopic   = "rent.events"
	consumerGroup = "rent-notifier"
)

func main() {
	ctx, stop := server.SignalContext()
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, version.Version)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, version.Version)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	rentalsServiceURL := os.Getenv("RENTALS_SERVICE_URL")
	if rentalsServiceURL == "" {
		logger.Error("RENTALS_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := messaging.NewConsumer(brokers, eventsTopic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	notifications := worker.NewNotificationHandler(rentalsServiceURL, emailServiceURL, telemetry.NewHTTPClient(10*time.Second), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", server.Health(serviceName))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting notification worker", "brokers", brokers, "topic", eventsTopic)
		err := consumer.Consume(gctx, notifications.Handle)
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return nil
		}
		return err
	})

	g.Go(func() error {
		return server.Run(gctx, logger, "worker metrics server", server.New(port, mux))
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
}
