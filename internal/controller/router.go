package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codemanager/internal/manager"
	"codemanager/pkg/utils/logger"
)

// NewRouter builds the service router with recovery, request tracing and
// request logging in front of the execution endpoints.
func NewRouter(m *manager.CodeManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger())

	h := NewRunController(m)
	router.GET("/health", h.Health)
	router.POST("/run", h.Run)
	router.POST("/max_concurrent", h.SetMaxConcurrent)
	router.GET("/metrics", h.Metrics)

	return router
}

// requestID stamps each request with an id the logger picks up from the
// context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), "request_id", uuid.NewString())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
