package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptotax/internal/storage"
)

// retryOrder clears an order's query jobs and re-enqueues its analysis run.
func (s *Server) retryOrder(c *gin.Context) {
	id := c.Param("id")
	if err := s.coordinator.Retry(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.logger.Printf("retry order %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retry order"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"order_id": id, "status": "retry_enqueued"})
}
