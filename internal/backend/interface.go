package backend

import (
	"context"
	"time"

	"impegni/internal/amqp"
	"impegni/internal/services"
	"impegni/internal/sheets"
	"impegni/internal/storage"
	"impegni/internal/worker"
)

// Backend bundles the wired services every binary works with.
type Backend struct {
	Repository  *storage.Repository
	Commitments *services.CommitmentService
	Billing     *services.BillingService
	Checking    *services.CheckingService
	Health      *services.HealthAggregator
	Exporter    sheets.Exporter
	Export      *worker.ExportWorker
	// Events is nil when AMQP is not configured.
	Events *amqp.Client
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string
	StoreTimeout time.Duration

	// Optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Location          *time.Location
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration

	// Optional; rows are kept in memory when empty
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of storage backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
