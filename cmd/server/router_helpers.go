package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"plan-ledger.backend/internal/interfaces/http/middleware"
	"plan-ledger.backend/pkg/metrics"
)

const (
	serviceName    = "plan-ledger-backend"
	serviceVersion = "0.1.0"
	healthTimeout  = 2 * time.Second
)

func applyCORSMiddleware(r *gin.Engine, origins []string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", middleware.AuthorizationHeader,
			middleware.AccountIDHeader, middleware.IdempotencyHeader, middleware.RequestIDHeader,
		},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-Access-Token", "X-Idempotency-Hit"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

func registerHealthRoute(r *gin.Engine, ping func(ctx context.Context) error) {
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if ping != nil {
			if err := ping(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
