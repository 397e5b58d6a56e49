package server

import (
	"errors"
	"net/http"

	"api-monitor/monitor"
	apperrors "api-monitor/pkg/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) testChannel(c *gin.Context) {
	err := s.core.TestChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, monitor.ErrChannelNotFound) {
			renderError(c, apperrors.NotFound("Channel not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test notification sent successfully"})
}
