package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/openrits/openrits/internal/email"
	"github.com/openrits/openrits/internal/server"
	"github.com/openrits/openrits/internal/telemetry"
	"github.com/openrits/openrits/internal/version"
)

const (
	serviceName = "email"
	outboxSize  = 100
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

	handler := email.NewHandler(logger, outboxSize)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", telemetry.WithHTTPRoute(handler.HandleSend))
	mux.HandleFunc("GET /outbox", telemetry.WithHTTPRoute(handler.HandleOutbox))
	mux.HandleFunc("GET /healthz", server.Health(serviceName))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	srv := server.New(port, telemetry.InstrumentHandler(mux, serviceName))
	if err := server.Run(ctx, logger, "email service", srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
