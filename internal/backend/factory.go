package backend

import (
	"context"
	"errors"
	"fmt"

	"impegni/internal/amqp"
	"impegni/internal/cache"
	"impegni/internal/categories"
	"impegni/internal/log"
	"impegni/internal/services"
	"impegni/internal/sheets"
	gsheet "impegni/internal/sheets/google"
	"impegni/internal/sheets/memory"
	"impegni/internal/storage"
	"impegni/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(config)
	if err != nil {
		return nil, err
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// AMQP is optional; a broker outage at startup only disables events
	var (
		amqpClient *amqp.Client
		publisher  services.EventPublisher
	)
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	dir := categories.NewCached(categories.NewStore(repo), config.CategoryCacheSize, config.CategoryCacheTTL)
	caches := cache.NewManager()
	caches.Register(dir)
	if config.CategoryCacheTTL > 0 {
		caches.Start(config.CategoryCacheTTL)
	}
	commitments := services.NewCommitmentService(repo, dir, publisher)
	health := services.NewHealthAggregator(repo, services.SystemClock{Location: config.Location})

	b := &Backend{
		Repository:  repo,
		Commitments: commitments,
		Billing:     services.NewBillingService(repo, publisher),
		Checking:    services.NewCheckingService(repo),
		Health:      health,
		Exporter:    exporter,
		Export:      worker.NewExportWorker(commitments, health, exporter),
		Events:      amqpClient,
	}

	f.logger.Info("Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", amqpClient != nil,
		"sheets_enabled", config.GoogleSpreadsheetID != "")

	return &BackendResult{
		Backend: b,
		Cleanup: func() error {
			caches.Stop()
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, repo.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openRepository(config Config) (*storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.StoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresURL, config.StoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres store")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("Google Sheets disabled - exports are kept in memory")
		return memory.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Google Sheets client initialized", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}
