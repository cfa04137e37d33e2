package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/openrits/openrits/internal/gateway"
	"github.com/openrits/openrits/internal/server"
	"github.com/openrits/openrits/internal/telemetry"
	"github.com/openrits/openrits/internal/version"
)

const serviceName = "gateway"

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

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	inventoryServiceURL := os.Getenv("INVENTORY_SERVICE_URL")
	if inventoryServiceURL == "" {
		logger.Error("INVENTORY_SERVICE_URL is required")
		os.Exit(1)
	}

	rentalsServiceURL := os.Getenv("RENTALS_SERVICE_URL")
	if rentalsServiceURL == "" {
		logger.Error("RENTALS_SERVICE_URL is required")
		os.Exit(1)
	}

	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	handler := gateway.NewHandler(
		gateway.NewServiceProxy(inventoryServiceURL, httpClient),
		gateway.NewServiceProxy(rentalsServiceURL, httpClient),
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/inventory/", telemetry.WithHTTPRoute(handler.HandleInventory))
	mux.HandleFunc("/rentals/", telemetry.WithHTTPRoute(handler.HandleRentals))
	mux.HandleFunc("GET /healthz", server.Health(serviceName))
	mux.Handle("GET /metrics", metricsHandler)

	srv := server.New(port, telemetry.InstrumentHandler(mux, serviceName))
	if err := server.Run(ctx, logger, "gateway service", srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
