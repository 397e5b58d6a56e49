package server

import (
	"context"
	"net/http"

	"api-monitor/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// triggerCycle runs one check cycle. ?force=true ignores schedules.
func (s *Server) triggerCycle(c *gin.Context) {
	force := c.Query("force") == "true"

	// a dropped trigger connection must not abort checks already in flight
	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := s.core.RunCycle(ctx, force)
	if err != nil {
		logger.Error("Health check cycle failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
