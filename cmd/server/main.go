// Package main runs the API server: order and payment endpoints, the
// pending-payment sweeper and the Prometheus metrics listener. Analysis
// tasks are handed to the worker over Kafka unless -use-memory is set,
// in which case everything runs in one process against in-memory stores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cryptotax/internal/analysis"
	"cryptotax/internal/api"
	"cryptotax/internal/artifacts"
	"cryptotax/internal/config"
	"cryptotax/internal/dune"
	"cryptotax/internal/observability"
	"cryptotax/internal/payment"
	"cryptotax/internal/solana"
	"cryptotax/internal/storage"
	"cryptotax/internal/storage/memory"
	"cryptotax/internal/storage/migrations"
	pgstore "cryptotax/internal/storage/postgres"
	"cryptotax/internal/taskqueue"
)

type stores struct {
	orders   storage.OrderStore
	payments storage.PaymentStore
	jobs     storage.QueryJobStore
	reports  storage.ReportStore
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and an inline task queue")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	network, err := payment.ParseNetwork(cfg.Solana.Network)
	if err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if cfg.Solana.Recipient == "" {
		logger.Fatal("solana.recipient is required")
	}
	if !*useMemory && cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn is required (use -use-memory for in-memory storage)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg.Postgres.DSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	reportStore, err := artifacts.NewFSStore(cfg.Reports.Dir)
	if err != nil {
		logger.Fatalf("Failed to create report store: %v", err)
	}

	reader := solana.NewHTTPClient(cfg.Solana.RPCURL)
	verifier := payment.NewVerifier(reader)
	verifier.Strict = cfg.Solana.Strict

	var queue taskqueue.Queue
	var inline *taskqueue.Sync
	if *useMemory {
		inline = taskqueue.NewSync()
		queue = inline
		logger.Println("Using inline task queue")
	} else {
		producer := taskqueue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		queue = producer
	}

	coordinator := analysis.NewCoordinator(analysis.Options{
		Orders:       st.orders,
		Jobs:         st.jobs,
		Reports:      st.reports,
		Client:       dune.NewHTTPClient(cfg.Dune.APIKey),
		Artifacts:    reportStore,
		Queue:        queue,
		Logger:       log.New(os.Stdout, "[analysis] ", log.LstdFlags|log.Lshortfile),
		PollInterval: cfg.Dune.PollInterval,
		MaxWait:      cfg.Dune.MaxWait,
	})
	if inline != nil {
		inline.Handle(taskqueue.TaskAnalysisRun, coordinator.HandleTask)
	}

	machine := payment.NewStateMachine(st.payments, verifier, queue,
		log.New(os.Stdout, "[payment] ", log.LstdFlags|log.Lshortfile))

	sweeper := payment.NewSweeper(st.payments, reader, machine,
		log.New(os.Stdout, "[sweeper] ", log.LstdFlags|log.Lshortfile),
		payment.WithSweepInterval(cfg.Payment.SweepInterval),
		payment.WithGracePeriod(cfg.Payment.GracePeriod))
	go sweeper.Run(ctx)

	go serveMetrics(cfg.Server.MetricsAddr, logger)

	srv := api.NewServer(api.Options{
		Orders:      st.orders,
		Payments:    st.payments,
		Jobs:        st.jobs,
		Reports:     st.reports,
		Machine:     machine,
		Coordinator: coordinator,
		Artifacts:   reportStore,
		Logger:      log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
		Recipient:   cfg.Solana.Recipient,
		Network:     network,
		AmountCents: cfg.Payment.AmountCents,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	srv.Routes(router)

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Printf("Listening on %s (network=%s)", cfg.Server.Addr, network)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores builds either in-memory or PostgreSQL-backed stores.
func createStores(ctx context.Context, dsn string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		orders := memory.NewOrderStore()
		return &stores{
			orders:   orders,
			payments: memory.NewPaymentStore(orders),
			jobs:     memory.NewQueryJobStore(),
			reports:  memory.NewReportStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return &stores{
		orders:   pgstore.NewOrderStore(pool),
		payments: pgstore.NewPaymentStore(pool),
		jobs:     pgstore.NewQueryJobStore(pool),
		reports:  pgstore.NewReportStore(pool),
	}, pool.Close, nil
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
