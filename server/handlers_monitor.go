package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"api-monitor/db"
	"api-monitor/model"
	"api-monitor/monitor"
	apperrors "api-monitor/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryHours = 24
	defaultHistoryLimit = 100
)

type testURLRequest struct {
	URL           string  `json:"url" binding:"required,url"`
	Method        string  `json:"method" binding:"omitempty,oneof=GET POST HEAD"`
	SkipSSLVerify bool    `json:"skip_ssl_verify"`
	AuthProfileID *string `json:"auth_profile_id" binding:"omitempty,uuid"`
}

func (s *Server) testURL(c *gin.Context) {
	var req testURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.BadRequest("Validation failed", err))
		return
	}

	result, err := s.core.TestURL(c.Request.Context(), monitor.URLTestRequest{
		URL:           req.URL,
		Method:        model.MonitorMethod(req.Method),
		SkipSSLVerify: req.SkipSSLVerify,
		AuthProfileID: req.AuthProfileID,
	})
	if err != nil {
		if errors.Is(err, monitor.ErrAuthProfileNotFound) {
			renderError(c, apperrors.NotFound("Auth profile not found"))
			return
		}
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) smartDefaults(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		renderError(c, apperrors.BadRequest("URL parameter is required", nil))
		return
	}
	if u, err := url.ParseRequestURI(raw); err != nil || u.Host == "" {
		renderError(c, apperrors.BadRequest("Invalid URL format", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.core.SmartDefaults(c.Request.Context(), raw)})
}

func (s *Server) healthChecks(c *gin.Context) {
	monitorID := c.Param("id")
	hours := queryInt(c, "hours", defaultHistoryHours)
	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit > db.MaxHistoryLimit {
		limit = db.MaxHistoryLimit
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	ctx := c.Request.Context()
	checks, err := s.history.ListHealthChecks(ctx, monitorID, since, limit)
	if err != nil {
		renderError(c, apperrors.Wrap(err, "Failed to load health checks"))
		return
	}
	stats, err := s.history.GetUptimeStats(ctx, monitorID, since)
	if err != nil {
		renderError(c, apperrors.Wrap(err, "Failed to load uptime stats"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": checks, "stats": stats})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
