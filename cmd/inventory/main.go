package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/lib/pq"

	"github.com/openrits/openrits/internal/inventory"
	"github.com/openrits/openrits/internal/server"
	"github.com/openrits/openrits/internal/telemetry"
	"github.com/openrits/openrits/internal/version"
)

const serviceName = "inventory"

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

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(postgresURL, "inventory")
	if err != nil {
		logger.Error("failed to open database connection", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	handler := inventory.NewHandler(
		inventory.NewCategoryRepository(db),
		inventory.NewPropertyRepository(db),
		inventory.NewItemRepository(db),
		inventory.NewValueRepository(db),
		logger,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /healthz", server.Health(serviceName))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	srv := server.New(port, telemetry.InstrumentHandler(mux, serviceName))
	if err := server.Run(ctx, logger, "inventory service", srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
