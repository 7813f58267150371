package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ledgerly/backend/docs"
	"github.com/ledgerly/backend/internal/audit"
	"github.com/ledgerly/backend/internal/config"
	"github.com/ledgerly/backend/internal/database"
	"github.com/ledgerly/backend/internal/fx"
	"github.com/ledgerly/backend/internal/handlers"
	"github.com/ledgerly/backend/internal/logger"
	mW "github.com/ledgerly/backend/internal/middleware"
	"github.com/ledgerly/backend/internal/services"
	"github.com/ledgerly/backend/internal/store"
	"github.com/ledgerly/backend/internal/store/memory"
	"github.com/ledgerly/backend/internal/store/postgres"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Ledgerly API
// @version 1.0
// @description Personal finance ledger: accounts, transactions, transfers, bills, loans, goals and savings plans
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", true)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat == "console")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Initialize storage
	var st store.Store
	switch cfg.DataBackend {
	case config.BackendPostgres:
		if cfg.Database.MigrateOnStart {
			if err := database.RunMigrations(cfg.Database.URL()); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
			log.Info().Msg("database migrations applied")
		}
		db, err := database.InitDB(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		st = postgres.New(db)
	default:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		st = memory.New()
	}

	redisClient := database.InitRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var provider fx.RateProvider
	if cfg.FX.ProviderURL != "" {
		provider = fx.NewHTTPProvider(cfg.FX.ProviderURL, cfg.FX.Timeout)
	}
	rates := fx.NewService(provider, redisClient, fx.Options{
		CacheTTL:  cfg.FX.CacheTTL,
		CacheSize: cfg.FX.CacheSize,
	}, log)

	deps := services.Deps{
		Store: st,
		Audit: audit.NewAuditLogger(logger.Component(log, "audit")),
		Log:   log,
	}

	billService := services.NewBillService(deps, rates, cfg.DueSoonDays)
	goalService := services.NewGoalService(deps)
	api := &handlers.API{
		Accounts:     handlers.NewAccountHandler(services.NewAccountService(deps), log),
		Transactions: handlers.NewTransactionHandler(services.NewTransactionService(deps, rates), log),
		Transfers:    handlers.NewTransferHandler(services.NewTransferService(deps, rates), log),
		Bills:        handlers.NewBillHandler(billService, log),
		Loans:        handlers.NewLoanHandler(services.NewLoanService(deps, rates), log),
		Goals:        handlers.NewGoalHandler(goalService, log),
		Savings:      handlers.NewSavingsPlanHandler(services.NewSavingsPlanService(deps, rates), log),
		Reports:      handlers.NewReportHandler(services.NewReportService(deps, billService, goalService), log),
		FX:           handlers.NewFXHandler(rates),
	}

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mW.RequestLogger(log))
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.Auth(cfg.JWTSecret))
		api.Routes(r)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.DataBackend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
