package backend

import (
	"context"
	"errors"
	"fmt"

	"regnskap/internal/amqp"
	"regnskap/internal/log"
	"regnskap/internal/services"
	"regnskap/internal/sheets/chart"
	"regnskap/internal/sheets/file"
	gsheet "regnskap/internal/sheets/google"
	"regnskap/internal/storage"
	"regnskap/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// replaced in tests
	newPublisher func(url, exchange, queue string, logger *log.Logger) (publisher, error)
}

type publisher interface {
	services.Publisher
	Close() error
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		newPublisher: func(url, exchange, queue string, logger *log.Logger) (publisher, error) {
			return amqp.NewClient(url, exchange, queue, logger)
		},
	}
}

// CreateBackend implements Factory.CreateBackend. Optional adapters that
// fail to start are logged and left out; a store failure is returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store}
	cleanups := []CleanupFunc{store.Close}

	if config.AMQPURL != "" {
		pub, err := f.newPublisher(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = pub
			cleanups = append(cleanups, pub.Close)
		}
	}

	if config.ExportDir != "" {
		result.Destinations = append(result.Destinations, services.Destination{
			Name:   "file",
			Writer: file.New(config.ExportDir, f.logger),
		})
	}

	if config.ChartDir != "" {
		result.Destinations = append(result.Destinations, services.Destination{
			Name:   "chart",
			Record: chart.New(config.ChartDir, config.ChartCurrency, f.logger),
		})
	}

	if config.GoogleSpreadsheetID != "" {
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
		}, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize Google Sheets client, skipping sheets export", log.FieldError, err)
		} else {
			result.Destinations = append(result.Destinations, services.Destination{Name: "google-sheets", Writer: cli})
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, config.Type,
		"amqp_enabled", result.Publisher != nil,
		"destinations", len(result.Destinations))
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.ResultsStore, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
