package server

import (
	"errors"
	"net/http"

	"api-monitor/monitor"
	apperrors "api-monitor/pkg/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) testAuthProfile(c *gin.Context) {
	preview, err := s.core.TestAuthProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, monitor.ErrAuthProfileNotFound) {
			renderError(c, apperrors.NotFound("Auth profile not found"))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Token fetched successfully",
		"token_preview": preview,
	})
}
