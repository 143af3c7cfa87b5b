package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	categoryservice "github.com/FACorreiaa/paypay-tracker/internal/domain/category/service"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/paypay-tracker/internal/domain/import/service"
	txrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
	txservice "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/service"
	"github.com/FACorreiaa/paypay-tracker/pkg/config"
	"github.com/FACorreiaa/paypay-tracker/pkg/db"
	"github.com/FACorreiaa/paypay-tracker/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	CategoryRepo    categoryrepo.CategoryRepository
	RuleRepo        categoryrepo.RuleRepository
	TransactionRepo txrepo.TransactionRepository
	UploadRepo      importrepo.CsvUploadRepository

	// Services
	Seeder                *categoryrepo.Seeder
	InitializationService *categoryservice.InitializationService
	CategoryService       *categoryservice.Service
	ImportService         *importservice.ImportService
	TransactionService    *txservice.Service
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	deps.Metrics = metrics.New(deps.Registry)

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.DB.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the connection pool
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
		ConnectAttempts: uint(d.Config.Database.ConnectAttempts),
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.CategoryRepo = categoryrepo.NewPostgresCategoryRepository(d.DB.Pool)
	d.RuleRepo = categoryrepo.NewPostgresRuleRepository(d.DB.Pool)
	d.TransactionRepo = txrepo.NewPostgresTransactionRepository(d.DB.Pool)
	d.UploadRepo = importrepo.NewPostgresCsvUploadRepository(d.DB.Pool)
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	loc, err := d.Config.Import.Location()
	if err != nil {
		return err
	}

	d.Seeder = categoryrepo.NewSeeder(d.DB.Pool, d.Logger)

	d.InitializationService = categoryservice.NewInitializationService(
		categoryrepo.NewPostgresTxRunner(d.DB.Pool),
		d.Logger,
	).WithMetrics(d.Metrics)

	d.CategoryService = categoryservice.NewService(d.CategoryRepo, d.RuleRepo, d.Logger)

	d.ImportService = importservice.NewImportService(
		parser.NewParser(loc),
		d.UploadRepo,
		d.TransactionRepo,
		d.RuleRepo,
		d.CategoryRepo,
		d.Logger,
	).WithMetrics(d.Metrics)

	d.TransactionService = txservice.NewService(
		d.TransactionRepo,
		d.RuleRepo,
		d.CategoryRepo,
		d.Logger,
	).WithMetrics(d.Metrics)

	return nil
}

// Close flushes metrics and releases the pool
func (d *Dependencies) Close() {
	if path := d.Config.Observability.MetricsFile; path != "" {
		if err := prometheus.WriteToTextfile(path, d.Registry); err != nil {
			d.Logger.Warn("failed to write metrics file", slog.String("path", path), slog.Any("error", err))
		}
	}
	d.DB.Close()
}

func exitOnError(logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, slog.Any("error", err))
	printError(err.Error())
	os.Exit(1)
}
