package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/simp-lee/userdesk/internal/pkg"
)

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to the userdesk API!"

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, pkg.Message{Message: WelcomeMessage})
	})
	r.GET("/health", healthHandler(deps.DB))
	r.GET("/metrics", metricsHandler(deps.Gatherer))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		pkg.Abort(c, http.StatusNotFound, "Not Found")
	})
	return nil
}

// healthHandler pings the database and reports status.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus, status, code := "ok", "ok", http.StatusOK

		if err := pingDB(c.Request.Context(), db); err != nil {
			dbStatus, status, code = "error", "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.Handler()
	if g != nil {
		h = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return gin.WrapH(h)
}
