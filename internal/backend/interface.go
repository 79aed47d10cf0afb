// Package backend builds the results store and the optional outbound
// adapters from configuration.
package backend

import (
	"context"

	"regnskap/internal/services"
	"regnskap/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the store, the optional publisher and the export
// destinations. Publisher is nil when AMQP is not configured or unreachable.
type BackendResult struct {
	Store        storage.ResultsStore
	Publisher    services.Publisher
	Destinations []services.Destination
	Cleanup      CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// TSV export, optional
	ExportDir string

	// Expense charts, optional
	ChartDir      string
	ChartCurrency string
}

// BackendType represents the type of results store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
