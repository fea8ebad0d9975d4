package backend

import (
	"context"
	"fmt"

	"finwise/internal/amqp"
	"finwise/internal/core"
	"finwise/internal/ledger"
	applog "finwise/internal/log"
	"finwise/internal/services"
	"finwise/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var seed []core.Transaction
	if config.SeedDemo {
		seed = ledger.DemoSeed()
	}
	store, err := ledger.New(seed)
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	svc := services.NewTransactionService(store, nil, nil)
	f.logger.Info("Initialized memory backend", "transactions", store.Len())

	return &Result{Service: svc, Cleanup: svc.Close}, nil
}

// createSQLiteBackend loads the ledger from the snapshot table and writes
// every later mutation back to it.
func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedDemo {
		seeded, err := repo.SeedIfEmpty(ctx, ledger.DemoSeed())
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("seed demo transactions: %w", err)
		}
		if seeded {
			f.logger.Info("Seeded demo transactions", "db_path", config.SQLiteDBPath)
		}
	}

	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	store, err := ledger.New(loaded)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("restore ledger: %w", err)
	}

	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(store, repo, publisher)
	if amqpClient != nil {
		svc.OnClose(amqpClient.Close)
	}
	svc.OnClose(repo.Close)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion(),
		"transactions", store.Len(),
		"amqp_enabled", publisher != nil)

	return &Result{Service: svc, Repository: repo, Cleanup: svc.Close}, nil
}
