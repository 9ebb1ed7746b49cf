// Package server is the HTTP surface: a gin engine exposing the document,
// preferences, template, and export endpoints plus health and Prometheus
// metrics.
package server

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certidocs-backend/internal/documents"
	"certidocs-backend/internal/export"
	"certidocs-backend/internal/preferences"
	"certidocs-backend/internal/templates"
)

// Services bundles everything the handlers need.
type Services struct {
	Documents   *documents.Service
	Preferences *preferences.Service
	Templates   *templates.Service
	Export      *export.Service
}

// NewEngine builds the gin engine with routes registered.
func NewEngine(logger *slog.Logger, svcs Services) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerRoutes(engine, svcs)
	return engine
}

// Addr returns a normalized listen address for the given port or address.
func Addr(addr string) string {
	if addr == "" {
		return ":8080"
	}
	if addr[0] == ':' {
		return addr
	}
	for _, r := range addr {
		if r < '0' || r > '9' {
			return addr // already host:port
		}
	}
	return fmt.Sprintf(":%s", addr)
}
