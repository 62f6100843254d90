package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bankcore/internal/api"
	"bankcore/internal/processor"
	"bankcore/internal/repository/memory"
	"bankcore/internal/repository/postgres"
	"bankcore/internal/scheduler"
	"bankcore/internal/service"
	"bankcore/pkg/crypto"
	"bankcore/pkg/metrics"
)

const appName = "bankcore"

type Config struct {
	Storage       string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	ServerPort    string
	MetricsAddr   string
	SigningSecret string
	MinBalance    decimal.Decimal
	Workers       int
}

func main() {
	logger := setupLogger()
	slog.SetDefault(logger)
	logger.Info("Starting application", slog.String("name", appName))

	cfg := loadConfig(logger)

	stores, closeStores, err := setupStores(cfg, logger)
	if err != nil {
		logger.Error("Storage initialisation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStores()

	metricsCollector := metrics.NewMetricsCollector(logger)
	signer := crypto.NewSigner(cfg.SigningSecret, logger)
	notificationService := service.NewNotificationService(&service.LogSMSSender{Logger: logger}, cfg.Workers, logger)
	eventScheduler := scheduler.New(logger)

	proc := processor.NewTransferProcessor(stores, notificationService, eventScheduler,
		processor.Config{MinBalance: cfg.MinBalance}, logger)

	if err := proc.ResumePendingEvents(context.Background()); err != nil {
		logger.Error("Failed to resume pending events", slog.String("error", err.Error()))
	}

	apiHandler := api.NewAPIHandler(proc, stores, metricsCollector, signer, logger)
	metricsServer := metricsCollector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg, apiHandler, logger)

	waitForShutdown(logger, httpServer, metricsServer, eventScheduler, notificationService)
	logger.Info("Application shutdown complete")
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) Config {
	minBalance, err := decimal.NewFromString(getEnv("MIN_BALANCE", "100"))
	if err != nil {
		logger.Warn("Invalid MIN_BALANCE, using default", slog.String("error", err.Error()))
		minBalance = decimal.NewFromInt(100)
	}

	workers, err := strconv.Atoi(getEnv("NOTIFICATION_WORKERS", "3"))
	if err != nil || workers < 1 {
		workers = 3
	}

	return Config{
		Storage:       getEnv("STORAGE", "memory"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "bankcore"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		SigningSecret: getEnv("SIGNING_SECRET", "change-me"),
		MinBalance:    minBalance,
		Workers:       workers,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func setupStores(cfg Config, logger *slog.Logger) (processor.Stores, func(), error) {
	if cfg.Storage != "postgres" {
		logger.Info("Using in-memory storage")
		return processor.Stores{
			Customers:    memory.NewCustomerRepository(),
			Accounts:     memory.NewAccountRepository(),
			Transactions: memory.NewTransactionRepository(),
			Cards:        memory.NewCardRepository(),
			Offers:       memory.NewOfferRepository(),
			Events:       memory.NewEventRepository(),
		}, func() {}, nil
	}

	db, err := postgres.Open(postgres.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return processor.Stores{}, nil, err
	}

	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return processor.Stores{}, nil, err
	}

	logger.Info("Connected to database", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))
	return processor.Stores{
		Customers:    postgres.NewCustomerRepository(db),
		Accounts:     postgres.NewAccountRepository(db),
		Transactions: postgres.NewTransactionRepository(db),
		Cards:        postgres.NewCardRepository(db),
		Offers:       postgres.NewOfferRepository(db),
		Events:       postgres.NewEventRepository(db),
	}, func() { db.Close() }, nil
}

func startHTTPServer(cfg Config, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	router := mux.NewRouter()
	apiHandler.RegisterRoutes(router)
	router.Use(api.LoggingMiddleware(logger))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	eventScheduler *scheduler.Scheduler,
	notificationService *service.NotificationService,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := eventScheduler.Shutdown(ctx); err != nil {
		logger.Error("Scheduler shutdown failed", slog.String("error", err.Error()))
	}

	if err := notificationService.Shutdown(ctx); err != nil {
		logger.Error("Notification service shutdown failed", slog.String("error", err.Error()))
	}
}
