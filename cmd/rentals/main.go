package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/openrits/openrits/internal/messaging"
	"github.com/openrits/openrits/internal/rentals"
	"github.com/openrits/openrits/internal/server"
	"github.com/openrits/openrits/internal/telemetry"
	"github.com/openrits/openrits/internal/version"
)

const (
	serviceName = "rentals"
	eventsTopic = "rent.events"
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

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	inventoryServiceURL := os.Getenv("INVENTORY_SERVICE_URL")
	if inventoryServiceURL == "" {
		logger.Error("INVENTORY_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(postgresURL, "rentals")
	if err != nil {
		logger.Error("failed to open database connection", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var publisher messaging.Publisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), eventsTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, rent events will not be published")
	}

	items := rentals.NewInventoryClient(inventoryServiceURL, telemetry.NewHTTPClient(10*time.Second))
	service := rentals.NewRentService(rentals.NewRentRepository(db), items, publisher, logger)

	handler := rentals.NewHandler(
		rentals.NewCustomerRepository(db),
		rentals.NewCustomerAttributeRepository(db),
		rentals.NewRentAttributeRepository(db),
		service,
		logger,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /healthz", server.Health(serviceName))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	srv := server.New(port, telemetry.InstrumentHandler(mux, serviceName))
	if err := server.Run(ctx, logger, "rentals service", srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
