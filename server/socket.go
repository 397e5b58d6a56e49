package server

import (
	"context"
	"time"

	"api-monitor/model"
	"api-monitor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/socket"
	"go.uber.org/zap"
)

const socketQueryTimeout = 10 * time.Second

// BroadcastHealthCheck pushes a freshly recorded check to every client.
func (s *Server) BroadcastHealthCheck(hc *model.HealthCheck) {
	s.socketServer.To("public").Emit("healthCheck", hc)
}

func (s *Server) registerSocketRoutes() {
	handler := s.socketServer.ServeHandler(nil)
	s.router.GET("/socket.io/*any", gin.WrapH(handler))
	s.router.POST("/socket.io/*any", gin.WrapH(handler))

	s.socketServer.On("connection", func(args ...any) {
		client := args[0].(*socket.Socket)
		client.Join("public")
		s.setupHealthCheckHandlers(client)
	})
}

func (s *Server) setupHealthCheckHandlers(client *socket.Socket) {
	// getHealthChecks(monitorID, hours[, ack])
	client.On("getHealthChecks", func(args ...any) {
		monitorID, err := getArgAsString(args, 0)
		if err != nil {
			return
		}
		hours := defaultHistoryHours
		if h, err := getArgAsFloat64(args, 1); err == nil && h > 0 {
			hours = int(h)
		}

		ctx, cancel := context.WithTimeout(context.Background(), socketQueryTimeout)
		defer cancel()
		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		checks, err := s.history.ListHealthChecks(ctx, monitorID, since, defaultHistoryLimit)
		if err != nil {
			logger.Error("Failed to load health checks", zap.String("monitor_id", monitorID), zap.Error(err))
			return
		}

		payload := map[string]any{"data": checks, "hours": hours}
		if cb := getCallback(args); cb != nil {
			cb([]any{payload}, nil)
			return
		}
		client.Emit("healthCheckList", monitorID, payload)
	})
}
