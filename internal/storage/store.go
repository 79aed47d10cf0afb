// Package storage persists ResultsRecords keyed by period (YYYY-MM).
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"regnskap/internal/core"
)

// ErrNotFound is returned by Load when no record exists for the period.
var ErrNotFound = errors.New("results not found")

// ErrInvalidPeriod is returned for keys that are not YYYY-MM.
var ErrInvalidPeriod = errors.New("invalid period")

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ResultsStore is the persistence port for period summaries.
type ResultsStore interface {
	Load(ctx context.Context, period string) (core.ResultsRecord, error)
	Save(ctx context.Context, period string, rec core.ResultsRecord) error
	Periods(ctx context.Context) ([]string, error)
	Close() error
}

// ValidatePeriod checks that period is a YYYY-MM key.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return nil
}

// SaveMerged stores rec under period, first merging it with any record
// already stored there. It returns the record that was written.
func SaveMerged(ctx context.Context, store ResultsStore, period string, rec core.ResultsRecord, now time.Time) (core.ResultsRecord, error) {
	existing, err := store.Load(ctx, period)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return core.ResultsRecord{}, fmt.Errorf("load %s: %w", period, err)
	default:
		rec, err = core.Merge(existing, rec, now)
		if err != nil {
			return core.ResultsRecord{}, fmt.Errorf("merge %s: %w", period, err)
		}
	}
	if err := store.Save(ctx, period, rec); err != nil {
		return core.ResultsRecord{}, err
	}
	return rec, nil
}

// Latest loads the most recent stored period.
func Latest(ctx context.Context, store ResultsStore) (core.ResultsRecord, error) {
	periods, err := store.Periods(ctx)
	if err != nil {
		return core.ResultsRecord{}, err
	}
	if len(periods) == 0 {
		return core.ResultsRecord{}, ErrNotFound
	}
	return store.Load(ctx, periods[len(periods)-1])
}
