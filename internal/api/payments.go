package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cryptotax/internal/payment"
	"cryptotax/internal/storage"
)

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// verifyPayment confirms a payment by transaction signature. A signature that
// is not yet visible on the cluster is retried for a bounded window before
// giving up, since wallets report signatures before finalization.
func (s *Server) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var result *payment.ConfirmResult
	for attempt := 1; ; attempt++ {
		var err error
		result, err = s.machine.Confirm(ctx, req.OrderID, req.Signature)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			s.logger.Printf("verify payment for order %s failed: %v", req.OrderID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "verification temporarily unavailable"})
			return
		}
		if result.Confirmed || result.Outcome != payment.OutcomeNotFound || attempt >= s.verifyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			c.JSON(http.StatusBadGateway, gin.H{"error": "verification cancelled"})
			return
		case <-time.After(s.verifyDelay):
		}
	}

	status := ""
	if order, err := s.orders.GetByID(ctx, req.OrderID); err == nil {
		status = string(order.Status)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      result.Confirmed,
		"message":      result.Message,
		"outcome":      result.Outcome,
		"order_status": status,
	})
}
