package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngaut/NexusCRM-sub002/internal/auth"
	"github.com/ngaut/NexusCRM-sub002/internal/auth/middleware"
	"github.com/ngaut/NexusCRM-sub002/internal/conf"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/service"
	"github.com/ngaut/NexusCRM-sub002/internal/data"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/redis"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	jwtManager *auth.JWTManager,
	assistantService *service.AssistantService,
	d *data.Data,
) *HTTPServer {
	checks := make(map[string]HealthCheck)
	for name, fn := range d.HealthChecks() {
		checks[name] = fn
	}
	router := newRouter(config, log, jwtManager, assistantService, d.Redis, checks)

	return &HTTPServer{
		server: &http.Server{
			Addr:         config.Server.Addr(),
			Handler:      router,
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
		},
		logger: log,
	}
}

func newRouter(
	config *conf.Config,
	log *logger.Logger,
	jwtManager *auth.JWTManager,
	assistantService *service.AssistantService,
	rdb *redis.Client,
	checks map[string]HealthCheck,
) *gin.Engine {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, logger.MiddlewareOptions{SkipPaths: []string{"/health"}}))
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler(checks))

	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager, log))
	compactLimit := middleware.RateLimiter(rdb, "compact", config.Assistant.CompactionRateLimit, log)
	assistantService.RegisterRoutes(api, compactLimit)

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status": state,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
