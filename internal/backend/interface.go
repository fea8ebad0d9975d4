package backend

import (
	"context"

	"finwise/internal/services"
	"finwise/internal/storage"
)

// Result is a ready ledger service. Repository is nil for the memory
// backend. Cleanup releases everything the backend opened.
type Result struct {
	Service    *services.TransactionService
	Repository *storage.SQLiteRepository
	Cleanup    func() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type     BackendType
	SeedDemo bool

	// SQLite specific
	SQLiteDBPath string

	// Optional event publishing, sqlite only
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
