package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cryptotax/internal/domain"
	"cryptotax/internal/payment"
	"cryptotax/internal/storage"
)

// walletRe matches a base58-encoded Solana address.
var walletRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

type createOrderRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	// AmountCents overrides the configured price when positive.
	AmountCents int64  `json:"amount_cents"`
	Token       string `json:"token"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !walletRe.MatchString(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}
	if req.AmountCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	amount := req.AmountCents
	if amount == 0 {
		amount = s.amountCents
	}
	token := domain.TokenTypeUSDC
	switch req.Token {
	case "", string(domain.TokenTypeUSDC):
	case string(domain.TokenTypeUSDT):
		token = domain.TokenTypeUSDT
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported token %q", req.Token)})
		return
	}

	payReq, err := payment.BuildRequest(payment.RequestParams{
		Recipient:   s.recipient,
		AmountCents: amount,
		Token:       token,
		Network:     s.network,
		Label:       "Wallet Analysis",
		Message:     fmt.Sprintf("Analysis report for %s", req.WalletAddress),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		WalletAddress:  req.WalletAddress,
		Status:         domain.OrderStatusPendingPayment,
		AmountUSDCents: amount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Insert(c.Request.Context(), order); err != nil {
		s.logger.Printf("insert order failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	pay := &domain.Payment{
		ID:               uuid.NewString(),
		OrderID:          order.ID,
		PaymentURL:       payReq.URL,
		Reference:        payReq.Reference,
		RecipientAddress: s.recipient,
		TokenType:        token,
		TokenMint:        payReq.Mint,
		AmountExpected:   payReq.AmountBaseUnits,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        now,
	}
	if err := s.payments.Insert(c.Request.Context(), pay); err != nil {
		s.logger.Printf("insert payment for order %s failed: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":     order.ID,
		"status":       order.Status,
		"amount_cents": order.AmountUSDCents,
		"payment": gin.H{
			"url":       pay.PaymentURL,
			"reference": pay.Reference,
			"token":     pay.TokenType,
			"mint":      pay.TokenMint,
		},
	})
}

func (s *Server) listOrders(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	orders, err := s.orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		s.logger.Printf("list orders for user %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	views := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		views = append(views, gin.H{
			"order_id":       o.ID,
			"wallet_address": o.WalletAddress,
			"status":         o.Status,
			"amount_cents":   o.AmountUSDCents,
			"created_at":     o.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func (s *Server) getOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := s.orders.GetByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		s.logger.Printf("load order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}

	jobs, err := s.jobs.ListByOrder(c.Request.Context(), id)
	if err != nil {
		s.logger.Printf("list jobs for order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	reports, err := s.reports.ListByOrder(c.Request.Context(), id)
	if err != nil {
		s.logger.Printf("list reports for order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}

	jobViews := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		v := gin.H{
			"query_name":  j.QueryName,
			"status":      j.Status,
			"retry_count": j.RetryCount,
		}
		if j.ErrorType != nil {
			v["error_type"] = *j.ErrorType
		}
		if j.ErrorMessage != nil {
			v["error_message"] = *j.ErrorMessage
		}
		jobViews = append(jobViews, v)
	}
	reportViews := make([]gin.H, 0, len(reports))
	for _, r := range reports {
		reportViews = append(reportViews, gin.H{
			"id":        r.ID,
			"file_name": r.FileName,
			"file_type": r.FileType,
			"file_size": r.FileSize,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":       order.ID,
		"user_id":        order.UserID,
		"wallet_address": order.WalletAddress,
		"status":         order.Status,
		"amount_cents":   order.AmountUSDCents,
		"created_at":     order.CreatedAt,
		"jobs":           jobViews,
		"reports":        reportViews,
	})
}

func (s *Server) getOrderPayment(c *gin.Context) {
	id := c.Param("id")
	pay, err := s.payments.GetByOrderID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	if err != nil {
		s.logger.Printf("load payment for order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}

	order, err := s.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Printf("load order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}

	resp := gin.H{
		"order_id":     pay.OrderID,
		"status":       pay.Status,
		"order_status": order.Status,
		"payment_url":  pay.PaymentURL,
		"reference":    pay.Reference,
		"token":        pay.TokenType,
		"amount":       pay.AmountExpected,
	}
	if pay.TxSignature != nil {
		resp["tx_signature"] = *pay.TxSignature
	}
	if pay.ConfirmedAt != nil {
		resp["confirmed_at"] = *pay.ConfirmedAt
	}
	c.JSON(http.StatusOK, resp)
}
