package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/config"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/database"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/gateway"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/handlers"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
)

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				logger.L.Warn("Rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"remoteAddr", r.RemoteAddr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(allowedOrigins string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, origin := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimSpace(origin)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed["*"] || allowed[origin] {
				if allowed["*"] {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, X-Tenant-ID, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Fee engine server starting...")

	db, err := sql.Open("postgres", config.Cfg.DatabaseURL)
	if err != nil {
		logger.L.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.L.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Database connection established.")

	if err := database.InitDB(db); err != nil {
		logger.L.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing services and handlers...")
	catalog := services.NewRateCatalogService(services.NewPostgresCatalogStore(db), config.Cfg.CatalogCacheTTL)
	calculator := services.NewFeeCalculatorService()
	chargeStore := services.NewPostgresChargeStore(db)
	payments := gateway.NewClient(
		config.Cfg.PaymentGatewayURL,
		config.Cfg.PaymentGatewayAPIKey,
		config.Cfg.PaymentGatewayTimeout,
	)
	orchestrator := services.NewChargeOrchestratorService(catalog, calculator, chargeStore, payments)

	var goldPrice services.GoldPriceFunc
	if price, err := decimal.NewFromString(config.Cfg.GoldPriceUSDPerGram); err == nil && price.IsPositive() {
		goldPrice = services.StaticGoldPrice(price)
	}
	var participating []string
	if config.Cfg.CRSParticipating != "" {
		participating = strings.Split(config.Cfg.CRSParticipating, ",")
		for i := range participating {
			participating[i] = strings.TrimSpace(participating[i])
		}
	}
	evaluator := services.NewComplianceEvaluatorService(db, goldPrice, participating)
	ledger := services.NewRevenueLedgerService(services.NewPostgresRevenueStore(db), catalog, config.Cfg.InvoiceDueDays)
	reconciler := services.NewChargeReconciliationService(
		chargeStore, payments, config.Cfg.ReconcileStaleAfter, config.Cfg.ReconcileBatchSize,
	)

	feeHandler := handlers.NewFeeHandler(catalog, calculator, orchestrator)
	complianceHandler := handlers.NewComplianceHandler(evaluator)
	revenueHandler := handlers.NewRevenueHandler(ledger)

	limiter := rate.NewLimiter(rate.Limit(config.Cfg.RateLimitPerSecond), config.Cfg.RateLimitBurst)

	logger.L.Info("Configuring routes...")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(rateLimitMiddleware(limiter))
	r.Use(enableCORS(config.Cfg.AllowedOrigins))

	r.Post("/fees/calculate", feeHandler.HandleCalculateFee)
	r.Post("/fees/charge", feeHandler.HandleChargeFee)
	r.Get("/fees/charges", feeHandler.HandleListCharges)
	r.Get("/fees/charges/{chargeID}", feeHandler.HandleGetCharge)
	r.Post("/compliance/evaluate", complianceHandler.HandleEvaluate)
	r.Post("/revenue/aggregate", revenueHandler.HandleAggregatePeriod)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reconciler.Run(ctx, config.Cfg.ReconcileStaleAfter)

	server := &http.Server{
		Addr:         ":" + config.Cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.L.Info("Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown error", "error", err)
		}
	}()

	logger.L.Info("Server listening", "port", config.Cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Server stopped.")
}
