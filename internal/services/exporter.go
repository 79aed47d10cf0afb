package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/report"
	"regnskap/internal/sheets"
)

// ExporterConfig holds configuration for the export fan-out
type ExporterConfig struct {
	// WriteOrder is the category column order of the row
	WriteOrder []string

	// MaxRetries is the number of extra attempts per destination (default: 2)
	MaxRetries int

	// RetryDelay is the wait between attempts (default: 1s)
	RetryDelay time.Duration
}

// DefaultExporterConfig returns sensible defaults
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		MaxRetries: 2,
		RetryDelay: time.Second,
	}
}

// Destination is a named export target. Writer receives the spreadsheet
// row; Record, when set instead, receives the whole record.
type Destination struct {
	Name   string
	Writer sheets.RowWriter
	Record sheets.RecordWriter
}

func (d Destination) write(ctx context.Context, rec core.ResultsRecord, row []string) (string, error) {
	if d.Record != nil {
		return d.Record.WriteRecord(ctx, rec)
	}
	return d.Writer.WriteRow(ctx, row)
}

func (d Destination) lister() (sheets.PeriodLister, bool) {
	if d.Record != nil {
		l, ok := d.Record.(sheets.PeriodLister)
		return l, ok
	}
	l, ok := d.Writer.(sheets.PeriodLister)
	return l, ok
}

// ExportResult is the outcome for one destination.
type ExportResult struct {
	Name string
	Ref  string
	Err  error
}

// Exporter writes a record, or its spreadsheet row, to every destination
// concurrently.
type Exporter struct {
	destinations []Destination
	config       ExporterConfig
	logger       *log.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewExporter(destinations []Destination, config ExporterConfig, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Exporter{
		destinations: destinations,
		config:       config,
		logger:       logger.WithComponent(log.ComponentSheets),
		sleep:        sleepContext,
	}
}

// Len returns the number of destinations.
func (e *Exporter) Len() int {
	return len(e.destinations)
}

// Export writes rec's row to all destinations. Every destination is tried
// even if another fails; the results are in destination order and the
// returned error is the first failure.
func (e *Exporter) Export(ctx context.Context, rec core.ResultsRecord) ([]ExportResult, error) {
	row := report.SpreadsheetRow(rec, e.config.WriteOrder)
	results := make([]ExportResult, len(e.destinations))

	// A plain Group so one failing destination does not cancel the others.
	var g errgroup.Group
	for i, d := range e.destinations {
		i, d := i, d
		g.Go(func() error {
			ref, err := e.write(ctx, d, rec, row)
			results[i] = ExportResult{Name: d.Name, Ref: ref, Err: err}
			if err != nil {
				return fmt.Errorf("export to %s: %w", d.Name, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}

// Periods asks every destination that can list its periods which ones it
// already holds. Destinations that cannot list are left out; a failing one
// is reported in its entry and does not stop the others.
func (e *Exporter) Periods(ctx context.Context) []sheets.DestinationPeriods {
	var (
		g   errgroup.Group
		out = make([]sheets.DestinationPeriods, len(e.destinations))
		ok  = make([]bool, len(e.destinations))
	)
	for i, d := range e.destinations {
		i, d := i, d
		l, can := d.lister()
		if !can {
			continue
		}
		ok[i] = true
		g.Go(func() error {
			periods, err := l.Periods(ctx)
			if err != nil {
				e.logger.WarnContext(ctx, "Failed to list exported periods", log.FieldExporter, d.Name, log.FieldError, err)
			}
			out[i] = sheets.DestinationPeriods{Name: d.Name, Periods: periods, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	listed := make([]sheets.DestinationPeriods, 0, len(out))
	for i := range out {
		if ok[i] {
			listed = append(listed, out[i])
		}
	}
	return listed
}

func (e *Exporter) write(ctx context.Context, d Destination, rec core.ResultsRecord, row []string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.config.RetryDelay); err != nil {
				return "", err
			}
		}
		ref, err := d.write(ctx, rec, row)
		if err == nil {
			e.logger.InfoContext(ctx, "Exported results",
				log.FieldExporter, d.Name, log.FieldPeriod, row[0], log.FieldRef, ref)
			return ref, nil
		}
		lastErr = err
		e.logger.WarnContext(ctx, "Export attempt failed",
			log.FieldExporter, d.Name, "attempt", attempt+1, log.FieldError, err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
