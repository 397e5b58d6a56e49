package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"api-monitor/db"
	"api-monitor/model"
	"api-monitor/monitor"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/socket"
)

// Core is the monitoring service surface the HTTP layer drives.
type Core interface {
	RunCycle(ctx context.Context, force bool) (*monitor.CycleSummary, error)
	TestURL(ctx context.Context, req monitor.URLTestRequest) (*monitor.URLTestResult, error)
	TestAuthProfile(ctx context.Context, id string) (string, error)
	TestChannel(ctx context.Context, id string) error
	SmartDefaults(ctx context.Context, rawURL string) monitor.SmartDefaults
	HealthCheck() map[string]any
}

// History serves stored health checks.
type History interface {
	ListHealthChecks(ctx context.Context, monitorID string, since time.Time, limit int) ([]model.HealthCheck, error)
	GetUptimeStats(ctx context.Context, monitorID string, since time.Time) (db.UptimeStats, error)
	Ping(ctx context.Context) error
}

// Server 是 HTTP 与 Socket.IO 入口
type Server struct {
	router       *gin.Engine
	socketServer *socket.Server
	core         Core
	history      History
	cronSecret   string
}

// NewServer 创建服务器并注册全部路由
func NewServer(core Core, history History, cronSecret string) *Server {
	s := &Server{
		router:       gin.New(),
		socketServer: socket.NewServer(nil, nil),
		core:         core,
		history:      history,
		cronSecret:   cronSecret,
	}
	s.router.Use(gin.Recovery(), requestLogger())

	// 配置 CORS
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if os.Getenv("DEBUG") == "true" {
		corsConfig.AllowCredentials = false
		corsConfig.AllowOrigins = []string{"*"}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return true
		}
	}
	s.router.Use(cors.New(corsConfig))

	s.router.GET("/health", s.health)

	s.registerAPIRoutes()
	s.registerSocketRoutes()

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
	return s
}

// registerAPIRoutes 注册 REST API 路由
func (s *Server) registerAPIRoutes() {
	api := s.router.Group("/api")

	cron := api.Group("/cron", cronAuth(s.cronSecret))
	{
		cron.GET("/health-check", s.triggerCycle)
		cron.POST("/health-check", s.triggerCycle)
	}

	api.POST("/monitors/test-url", s.testURL)
	api.GET("/monitors/smart-defaults", s.smartDefaults)
	api.GET("/monitors/:id/health-checks", s.healthChecks)
	api.POST("/auth-profiles/:id/test", s.testAuthProfile)
	api.POST("/notifications/channels/:id/test", s.testChannel)
}

// Router 返回 Gin 引擎实例
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	health := s.core.HealthCheck()
	if err := s.history.Ping(c.Request.Context()); err != nil {
		health["database"] = "down"
	} else {
		health["database"] = "up"
	}
	c.JSON(http.StatusOK, health)
}
