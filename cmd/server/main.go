package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	httpadapter "github.com/homeward/homeward/internal/adapter/http"
	"github.com/homeward/homeward/internal/adapter/persistence"
	"github.com/homeward/homeward/internal/adapter/redislock"
	"github.com/homeward/homeward/internal/adapter/scheduler"
	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/config"
	"github.com/homeward/homeward/internal/income"
	"github.com/homeward/homeward/internal/ports"
	"github.com/homeward/homeward/internal/usecase"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger := setupLogger(cfg)
	logger.WithField("environment", cfg.Server.Environment).Info("starting homeward compliance engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initDatabase(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	imputedRate, err := decimal.NewFromString(cfg.Compliance.ImputedAssetRate)
	if err != nil {
		logger.Fatalf("Invalid imputed asset rate %q: %v", cfg.Compliance.ImputedAssetRate, err)
	}

	locker, err := redislock.NewProjectLocker(redislock.Config{
		Enabled:    cfg.Redis.Enabled,
		RedisURL:   cfg.GetRedisURL(),
		TTL:        cfg.Redis.LockTTL,
		RetryDelay: cfg.Redis.RetryDelay,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize project locker: %v", err)
	}

	// Repositories
	contractRepo := persistence.NewPostgresContractRepository(db)
	projectRepo := persistence.NewPostgresProjectRepository(db)
	householdRepo := persistence.NewPostgresHouseholdRepository(db)
	ledgerRepo := persistence.NewPostgresLedgerRepository(db)
	findingRepo := persistence.NewPostgresFindingRepository(db)
	reportRepo := persistence.NewPostgresReportRepository(db)
	certRepo := persistence.NewPostgresCertificationRepository(db)
	limits := persistence.NewPostgresLimitsProvider(db)

	// Core calculators
	library := income.NewLibrary()
	calculator := affordability.NewCalculator(library, imputedRate)

	// Use cases
	clock := ports.SystemClock{}
	lifecycle := usecase.NewLifecycleUseCase(contractRepo, projectRepo, clock, logger)
	certification := usecase.NewCertificationUseCase(householdRepo, projectRepo, certRepo, limits, calculator, logger)
	reserve := usecase.NewReserveUseCase(ledgerRepo, locker, logger)
	compliance := usecase.NewComplianceUseCase(projectRepo, householdRepo, reportRepo, findingRepo, ledgerRepo, limits, calculator, lifecycle, locker, clock, logger)

	// Deadline sweep
	sweeper := scheduler.NewSweeper(compliance, logger)
	if err := sweeper.Start(cfg.Compliance.SweepSchedule); err != nil {
		logger.Fatalf("Failed to start deadline sweep: %v", err)
	}
	defer sweeper.Stop()

	householdHandler := httpadapter.NewHouseholdHandler(householdRepo, library, imputedRate)
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		JWTSecret:      cfg.Security.JWTSecret,
		AllowedOrigins: cfg.Security.CORSAllowedOrigins,
	}, lifecycle, certification, reserve, compliance, householdHandler, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	logger.Info("server stopped")
}

// setupLogger configures logrus based on configuration
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// initDatabase initializes the database connection pool
func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxLifetime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
