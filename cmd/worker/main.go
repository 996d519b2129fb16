// Package main runs the analysis worker: it consumes analysis tasks from
// Kafka, executes the configured remote queries for each paid order and
// writes the resulting report files.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cryptotax/internal/analysis"
	"cryptotax/internal/artifacts"
	"cryptotax/internal/config"
	"cryptotax/internal/dune"
	"cryptotax/internal/observability"
	"cryptotax/internal/storage/migrations"
	pgstore "cryptotax/internal/storage/postgres"
	"cryptotax/internal/taskqueue"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn is required")
	}
	if cfg.Dune.APIKey == "" {
		logger.Fatal("dune.api_key is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	reportStore, err := artifacts.NewFSStore(cfg.Reports.Dir)
	if err != nil {
		logger.Fatalf("Failed to create report store: %v", err)
	}

	producer := taskqueue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	coordinator := analysis.NewCoordinator(analysis.Options{
		Orders:       pgstore.NewOrderStore(pool),
		Jobs:         pgstore.NewQueryJobStore(pool),
		Reports:      pgstore.NewReportStore(pool),
		Client:       dune.NewHTTPClient(cfg.Dune.APIKey),
		Artifacts:    reportStore,
		Queue:        producer,
		Logger:       logger,
		PollInterval: cfg.Dune.PollInterval,
		MaxWait:      cfg.Dune.MaxWait,
	})

	go serveMetrics(cfg.Server.MetricsAddr, logger)

	consumer := taskqueue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
	defer consumer.Close()
	consumer.Handle(taskqueue.TaskAnalysisRun, coordinator.HandleTask)

	logger.Printf("Consuming from %s (group %s)", cfg.Kafka.Topic, cfg.Kafka.GroupID)
	consumer.Run(ctx)
	logger.Println("Shutdown complete")
}

// serveMetrics exposes Prometheus metrics and a health probe.
func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Printf("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("Metrics server error: %v", err)
	}
}
