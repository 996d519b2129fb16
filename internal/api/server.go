// Package api exposes the HTTP surface: order creation, payment
// verification, order status and report downloads.
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cryptotax/internal/analysis"
	"cryptotax/internal/artifacts"
	"cryptotax/internal/payment"
	"cryptotax/internal/storage"
)

// Verification retry defaults while a transaction propagates.
const (
	DefaultVerifyAttempts = 10
	DefaultVerifyDelay    = 2 * time.Second
)

// Server holds the HTTP handler dependencies.
type Server struct {
	orders      storage.OrderStore
	payments    storage.PaymentStore
	jobs        storage.QueryJobStore
	reports     storage.ReportStore
	machine     *payment.StateMachine
	coordinator *analysis.Coordinator
	artifacts   artifacts.Store
	logger      *log.Logger

	recipient   string
	network     payment.Network
	amountCents int64

	verifyAttempts int
	verifyDelay    time.Duration
}

// Options for creating a Server.
type Options struct {
	Orders      storage.OrderStore
	Payments    storage.PaymentStore
	Jobs        storage.QueryJobStore
	Reports     storage.ReportStore
	Machine     *payment.StateMachine
	Coordinator *analysis.Coordinator
	Artifacts   artifacts.Store
	Logger      *log.Logger

	// Recipient is the merchant wallet receiving payments.
	Recipient string
	// Network selects the token mint table.
	Network payment.Network
	// AmountCents is the default order price.
	AmountCents int64

	// VerifyAttempts/VerifyDelay bound the propagation retry loop of the
	// verify endpoint; zero values take the defaults.
	VerifyAttempts int
	VerifyDelay    time.Duration
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	s := &Server{
		orders:         opts.Orders,
		payments:       opts.Payments,
		jobs:           opts.Jobs,
		reports:        opts.Reports,
		machine:        opts.Machine,
		coordinator:    opts.Coordinator,
		artifacts:      opts.Artifacts,
		logger:         opts.Logger,
		recipient:      opts.Recipient,
		network:        opts.Network,
		amountCents:    opts.AmountCents,
		verifyAttempts: opts.VerifyAttempts,
		verifyDelay:    opts.VerifyDelay,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.verifyAttempts == 0 {
		s.verifyAttempts = DefaultVerifyAttempts
	}
	if s.verifyDelay == 0 {
		s.verifyDelay = DefaultVerifyDelay
	}
	return s
}

// Routes registers all HTTP routes.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/orders", s.createOrder)
		api.GET("/orders", s.listOrders)
		api.GET("/orders/:id", s.getOrder)
		api.GET("/orders/:id/payment", s.getOrderPayment)
		api.POST("/payments/verify", s.verifyPayment)
		api.GET("/reports/:id/download", s.downloadReport)
		api.POST("/admin/orders/:id/retry", s.retryOrder)
	}
}
