// Package services wires classification, resolution and aggregation into
// the monthly accounting run and its persistence and export steps.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regnskap/internal/core"
	"regnskap/internal/ingest"
	"regnskap/internal/log"
	"regnskap/internal/resolve"
	"regnskap/internal/storage"
)

type (
	Classifier interface {
		Classify(txs []core.Transaction) *core.CategorizedSet
	}

	Resolver interface {
		Resolve(set *core.CategorizedSet, pending []core.Transaction) (resolve.Result, error)
	}

	Aggregator interface {
		Aggregate(ctx context.Context, set *core.CategorizedSet, txs []core.Transaction) (core.ResultsRecord, error)
	}

	// Publisher announces stored results. It is optional.
	Publisher interface {
		PublishResults(ctx context.Context, period string, rec core.ResultsRecord) error
	}
)

// Dependencies are the collaborators of an AccountingService. Resolver,
// Store and Publisher may be nil.
type Dependencies struct {
	Classifier Classifier
	Resolver   Resolver
	Aggregator Aggregator
	Store      storage.ResultsStore
	Publisher  Publisher
}

// AccountingService runs one accounting pass over a month of transactions.
type AccountingService struct {
	deps   Dependencies
	logger *log.Logger
	now    func() time.Time
}

func NewAccountingService(deps Dependencies, logger *log.Logger) *AccountingService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AccountingService{
		deps:   deps,
		logger: logger.WithComponent(log.ComponentApp),
		now:    time.Now,
	}
}

// Process validates txs, classifies them, lets the user resolve the
// remainder and aggregates the result. An aborted or interrupted resolution
// keeps the automatic classification only.
func (s *AccountingService) Process(ctx context.Context, txs []core.Transaction) (core.ResultsRecord, error) {
	if err := ingest.Validate(txs); err != nil {
		return core.ResultsRecord{}, err
	}

	set := s.deps.Classifier.Classify(txs)

	if s.deps.Resolver != nil && len(set.Remainder) > 0 {
		res, err := s.deps.Resolver.Resolve(set, set.Remainder)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Resolution interrupted, keeping automatic classification",
				log.FieldError, err)
		case res.Outcome == resolve.Aborted:
			s.logger.InfoContext(ctx, "Resolution aborted, keeping automatic classification")
		default:
			set.Remainder = res.Remainder
		}
	}

	if n := len(set.Remainder); n > 0 {
		s.logger.WarnContext(ctx, "Transactions left uncategorized are not counted as expense",
			log.FieldRemainder, n,
			log.FieldAmount, core.SumOut(set.Remainder).StringFixed(2))
	}

	rec, err := s.deps.Aggregator.Aggregate(ctx, set, txs)
	if err != nil {
		return core.ResultsRecord{}, fmt.Errorf("aggregate: %w", err)
	}
	return rec, nil
}

// ProcessAll processes each statement in turn and merges the records, the
// way repeated imports into one period would.
func (s *AccountingService) ProcessAll(ctx context.Context, statements [][]core.Transaction) (core.ResultsRecord, error) {
	if len(statements) == 0 {
		return core.ResultsRecord{}, fmt.Errorf("%w: no statements", core.ErrValidation)
	}

	var merged core.ResultsRecord
	for i, txs := range statements {
		rec, err := s.Process(ctx, txs)
		if err != nil {
			return core.ResultsRecord{}, fmt.Errorf("statement %d: %w", i+1, err)
		}
		if i == 0 {
			merged = rec
			continue
		}
		if merged, err = core.Merge(merged, rec, s.now()); err != nil {
			return core.ResultsRecord{}, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return merged, nil
}

// Save stores rec under period, replacing any stored record, and publishes
// a notification. An empty period means the record's own period.
func (s *AccountingService) Save(ctx context.Context, period string, rec core.ResultsRecord) (core.ResultsRecord, error) {
	return s.store(ctx, period, rec, false)
}

// Import merges rec into whatever is stored under period.
func (s *AccountingService) Import(ctx context.Context, period string, rec core.ResultsRecord) (core.ResultsRecord, error) {
	return s.store(ctx, period, rec, true)
}

func (s *AccountingService) store(ctx context.Context, period string, rec core.ResultsRecord, merge bool) (core.ResultsRecord, error) {
	if s.deps.Store == nil {
		return core.ResultsRecord{}, errors.New("no results store configured")
	}
	if period == "" {
		period = rec.Period()
	}
	if err := storage.ValidatePeriod(period); err != nil {
		return core.ResultsRecord{}, err
	}

	stored := rec
	var err error
	if merge {
		stored, err = storage.SaveMerged(ctx, s.deps.Store, period, rec, s.now())
	} else {
		err = s.deps.Store.Save(ctx, period, rec)
	}
	if err != nil {
		return core.ResultsRecord{}, fmt.Errorf("store results: %w", err)
	}

	op := log.OpSave
	if merge {
		op = log.OpMerge
	}
	fields := log.NewFields().WithOperation(op).WithPeriod(period, stored.Runs)
	s.logger.InfoContext(ctx, "Stored results", fields.ToSlice()...)

	if s.deps.Publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping results message")
		return stored, nil
	}
	// The record is stored; a failed notification is only logged.
	if err := s.deps.Publisher.PublishResults(ctx, period, stored); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish results message", fields.WithError(err).ToSlice()...)
	}
	return stored, nil
}

// Load returns the record stored under period, or the latest one when
// period is empty.
func (s *AccountingService) Load(ctx context.Context, period string) (core.ResultsRecord, error) {
	if s.deps.Store == nil {
		return core.ResultsRecord{}, errors.New("no results store configured")
	}
	if period == "" {
		return storage.Latest(ctx, s.deps.Store)
	}
	if err := storage.ValidatePeriod(period); err != nil {
		return core.ResultsRecord{}, err
	}
	return s.deps.Store.Load(ctx, period)
}

// Periods lists stored periods in ascending order.
func (s *AccountingService) Periods(ctx context.Context) ([]string, error) {
	if s.deps.Store == nil {
		return nil, errors.New("no results store configured")
	}
	return s.deps.Store.Periods(ctx)
}
