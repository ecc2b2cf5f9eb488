package main

import (
	"github.com/gin-gonic/gin"
	"plan-ledger.backend/internal/interfaces/http/handlers"
	"plan-ledger.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	accountHandler     *handlers.AccountHandler
	paymentHandler     *handlers.PaymentHandler
	adminHandler       *handlers.AdminHandler
	identityMiddleware gin.HandlerFunc
	signupLimiter      *middleware.IPRateLimiter
	idempotencyStore   middleware.IdempotencyStore
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	api := r.Group("")
	api.Use(d.identityMiddleware)

	// Account routes
	accounts := api.Group("/accounts")
	{
		accounts.POST("", middleware.RateLimitMiddleware(d.signupLimiter), d.accountHandler.Accounts)
		accounts.GET("/:id", d.accountHandler.GetAccount)
		accounts.PATCH("/:id", d.accountHandler.UpdateAccount)
		accounts.GET("/:id/payments", d.accountHandler.ListAccountPayments)
	}

	// Payment routes; the callback and webhook are called by the gateway
	payments := api.Group("/payments")
	{
		payments.POST("/orders", middleware.IdempotencyMiddleware(d.idempotencyStore), d.paymentHandler.CreateOrder)
		payments.GET("/callback", d.paymentHandler.Callback)
		payments.POST("/verify", d.paymentHandler.Verify)
		payments.POST("/webhook", d.paymentHandler.Webhook)
	}

	// Admin routes; the gate lives in the usecases
	admin := api.Group("/admin")
	{
		admin.GET("", d.adminHandler.Dashboard)
		admin.GET("/statistics", d.adminHandler.Statistics)
		admin.POST("", d.adminHandler.Execute)
	}
}
