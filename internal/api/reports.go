package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptotax/internal/storage"
)

// downloadReport streams a generated report file to the client.
func (s *Server) downloadReport(c *gin.Context) {
	id := c.Param("id")
	artifact, err := s.reports.GetByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		s.logger.Printf("load report %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}

	rc, err := s.artifacts.Open(artifact.FilePath)
	if err != nil {
		s.logger.Printf("open report file %s failed: %v", artifact.FilePath, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "report file missing"})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.logger.Printf("stream report %s failed: %v", id, err)
	}
}
