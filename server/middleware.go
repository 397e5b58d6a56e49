package server

import (
	"crypto/subtle"
	"time"

	apperrors "api-monitor/pkg/errors"
	"api-monitor/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// cronAuth requires "Authorization: Bearer {secret}". An empty secret rejects everything.
func cronAuth(secret string) gin.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			logger.Warn("Rejected cron trigger", zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(apperrors.ErrUnauthorized.StatusCode, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// renderError writes err as an AppError body.
func renderError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.StatusCode >= 500 {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(appErr.StatusCode, appErr)
}
