package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"plan-ledger.backend/internal/config"
	"plan-ledger.backend/internal/infrastructure/datasources/postgres"
	"plan-ledger.backend/internal/infrastructure/gateway"
	"plan-ledger.backend/internal/infrastructure/jobs"
	"plan-ledger.backend/internal/infrastructure/migrations"
	"plan-ledger.backend/internal/infrastructure/repositories"
	"plan-ledger.backend/internal/interfaces/http/handlers"
	"plan-ledger.backend/internal/interfaces/http/middleware"
	"plan-ledger.backend/internal/usecases"
	"plan-ledger.backend/pkg/jwt"
	"plan-ledger.backend/pkg/logger"
	"plan-ledger.backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.New
	openDB     = postgres.NewConnection
	migrateDB  = migrations.Up
	runServer  = func(srv *http.Server) error { return srv.ListenAndServe() }
	getStdDB   = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	rdb, err := initRedis(cfg.Redis.URL, cfg.Redis.Password)
	if err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer rdb.Close()
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	if cfg.Database.AutoMigrate {
		if err := migrateDB(ctx, sqlDB, "postgres"); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info(ctx, "Database migrations applied")
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	uow := repositories.NewUnitOfWork(db)

	gatewayClient := gateway.NewClient(gateway.Config{
		KeyID:         cfg.Gateway.KeyID,
		KeySecret:     cfg.Gateway.KeySecret,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		APIURL:        cfg.Gateway.APIURL,
		CheckoutURL:   cfg.Gateway.CheckoutURL,
		Timeout:       cfg.Gateway.Timeout,
	}, nil)
	if !gatewayClient.Configured() {
		logger.Warn(ctx, "Payment gateway credentials missing, checkout is disabled")
	}

	// Usecases
	accountUsecase := usecases.NewAccountUsecase(accountRepo, paymentRepo, jwtService)
	authzUsecase := usecases.NewAuthorizationUsecase(accountRepo)
	queryUsecase := usecases.NewQueryUsecase(accountRepo, paymentRepo, authzUsecase)
	checkoutUsecase := usecases.NewCheckoutUsecase(accountRepo, paymentRepo, gatewayClient, cfg.Public.CallbackURL(), cfg.Payments.Prices)
	reconciliationUsecase := usecases.NewReconciliationUsecase(accountRepo, paymentRepo, uow, gatewayClient)

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountUsecase, jwtService.AccessExpiry(), cfg.Server.Env == "production")
	paymentHandler := handlers.NewPaymentHandler(checkoutUsecase, reconciliationUsecase, cfg.Public.ReturnURL())
	adminHandler := handlers.NewAdminHandler(queryUsecase, authzUsecase)

	// Background jobs
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var expiryJob *jobs.PendingPaymentExpiryJob
	if cfg.Payments.SweepInterval > 0 {
		expiryJob = jobs.NewPendingPaymentExpiryJob(paymentRepo, cfg.Payments.PendingTTL, cfg.Payments.SweepInterval)
		go expiryJob.Start(jobCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	applyCORSMiddleware(r, cfg.Server.CORSOrigins)
	registerHealthRoute(r, sqlDB.PingContext)
	registerMetricsRoute(r)
	registerRoutes(r, routeDeps{
		accountHandler:     accountHandler,
		paymentHandler:     paymentHandler,
		adminHandler:       adminHandler,
		identityMiddleware: middleware.IdentityMiddleware(jwtService, cfg.Auth.AllowIdentityHeader),
		signupLimiter:      middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		idempotencyStore:   rdb,
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Plan ledger backend starting", zap.String("port", cfg.Server.Port))
		serveErr <- runServer(srv)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info(ctx, "Shutting down server")
	if expiryJob != nil {
		expiryJob.Stop()
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
