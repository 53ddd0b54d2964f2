package backend

import (
	"context"
	"fmt"

	"mamaboss/internal/log"
	"mamaboss/internal/storage/file"
	"mamaboss/internal/storage/memory"
	"mamaboss/internal/storage/postgres"
	"mamaboss/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
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

	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		store := memory.New()
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case FileBackend:
		store, err := file.Open(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case SQLiteBackend:
		store, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case PostgresBackend:
		store, err := postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
