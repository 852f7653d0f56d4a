package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/cobrafacil/cobranca-api/internal/config"
	"github.com/cobrafacil/cobranca-api/internal/database"
	"github.com/cobrafacil/cobranca-api/internal/handlers"
	"github.com/cobrafacil/cobranca-api/internal/jobs"
	"github.com/cobrafacil/cobranca-api/internal/middleware"
	"github.com/cobrafacil/cobranca-api/internal/repository"
	"github.com/cobrafacil/cobranca-api/internal/services"
	"github.com/cobrafacil/cobranca-api/pkg/logger"
	"github.com/cobrafacil/cobranca-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "max_concurrent", cfg.WorkerCount)

	// Metrics collector
	collector := metrics.New()

	// Initialize services
	svcs := services.NewServices(repos, logger.Log, collector)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, worker)

	// Setup router
	router := setupRouter(h, cfg, collector)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config, collector *metrics.Collector) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/metrics", gin.WrapH(collector.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)
		v1.GET("/jobs/stats", h.Job.Stats)

		// Loans
		v1.POST("/loans", h.Loan.Create)
		v1.GET("/loans", h.Loan.Index)
		v1.GET("/loans/:id", h.Loan.Show)
		v1.GET("/loans/reference/:reference", h.Loan.ShowByReference)
		v1.GET("/loans/:id/balance", h.Loan.Balance)
		v1.GET("/loans/:id/status", h.Loan.Status)
		v1.GET("/loans/:id/ledger", h.Loan.Ledger)
		v1.POST("/loans/:id/lend_more", h.Loan.LendMore)

		// Payments against the original schedule
		v1.GET("/installments/overdue", h.Payment.OverdueIndex)
		v1.GET("/installments/:id/debt", h.Payment.DebtPreview)
		v1.GET("/installments/:id/ledger", h.Payment.InstallmentLedger)
		v1.POST("/installments/:id/payments", h.Payment.Register)
		v1.POST("/late_fees/refresh", h.Payment.RefreshLateFees)

		// Renegotiation agreements
		v1.POST("/loans/:id/agreements/simulate", h.Agreement.Simulate)
		v1.POST("/loans/:id/agreements", h.Agreement.Create)
		v1.GET("/loans/:id/agreements/active", h.Agreement.ShowActive)
		v1.GET("/agreements/:id", h.Agreement.Show)
		v1.POST("/agreements/:id/installments/:installment_id/payments", h.Agreement.RegisterPayment)
		v1.POST("/agreements/:id/break", h.Agreement.Break)

		// Exports
		v1.GET("/loans/:id/export/statement.xlsx", h.Export.StatementXLSX)
		v1.GET("/loans/:id/export/ledger.csv", h.Export.LedgerCSV)
		v1.GET("/loans/:id/receipts/:entry_id", h.Export.ReceiptPDF)
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Re-accrue fines and daily interest on open loans
	interval := time.Duration(cfg.LateFeeRefreshHours) * time.Hour
	worker.ScheduleEveryImmediate(interval, func(ctx context.Context) error {
		logger.Info("[Job] Refreshing late fees...")
		_, err := svcs.Payment.RefreshLateFees(ctx)
		return err
	})

	logger.Info("Scheduled recurring jobs", "late_fee_refresh", interval.String())
}
