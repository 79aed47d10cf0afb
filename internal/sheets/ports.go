// Package sheets holds the export ports and their adapters.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"regnskap/internal/core"
)

// ErrEmptyRow is returned when a row has no period cell.
var ErrEmptyRow = errors.New("row has no period cell")

// Ports for outbound adapters.
type (
	// RowWriter writes one results row. The first cell is the row's period
	// (YYYY-MM); writing a period that already has a row replaces it.
	RowWriter interface {
		WriteRow(ctx context.Context, row []string) (rowRef string, err error)
	}

	// RecordWriter renders a whole results record, such as a chart. Writing
	// a period that already has an output replaces it.
	RecordWriter interface {
		WriteRecord(ctx context.Context, rec core.ResultsRecord) (ref string, err error)
	}

	// PeriodLister lists the periods that already have a row.
	PeriodLister interface {
		Periods(ctx context.Context) ([]string, error)
	}
)

// DestinationPeriods lists the periods one export destination already holds.
type DestinationPeriods struct {
	Name    string
	Periods []string
	Err     error
}

// RowPeriod returns the period cell of row.
func RowPeriod(row []string) (string, error) {
	if len(row) == 0 || row[0] == "" {
		return "", ErrEmptyRow
	}
	return row[0], nil
}

// RowYear returns the year of the row's period cell.
func RowYear(row []string) (int, error) {
	p, err := RowPeriod(row)
	if err != nil {
		return 0, err
	}
	var year, month int
	if _, err := fmt.Sscanf(p, "%4d-%2d", &year, &month); err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("invalid period cell %q", p)
	}
	return year, nil
}
