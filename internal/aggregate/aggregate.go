// Package aggregate turns a resolved categorization into a period's
// ResultsRecord, pulling the balance and exchange rate from providers.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"regnskap/internal/classify"
	"regnskap/internal/core"
	"regnskap/internal/log"
)

// DefaultFallbackRate is used when the rate provider fails and no fallback is configured.
var DefaultFallbackRate = decimal.NewFromInt(300)

// DefaultProviderTimeout bounds each provider call.
const DefaultProviderTimeout = 10 * time.Second

// Options configures an Aggregator.
type Options struct {
	SkipPatterns         classify.Patterns
	CommitmentCategories []string
	Holdings             decimal.Decimal
	FallbackRate         decimal.Decimal
	ProviderTimeout      time.Duration
}

// Aggregator computes ResultsRecords. Balance and Rate providers may be nil;
// a nil provider is treated like a failing one.
type Aggregator struct {
	balance    BalanceProvider
	rate       ExchangeRateProvider
	commitment CommitmentCalculator
	opts       Options
	logger     *log.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Aggregator.
func New(balance BalanceProvider, rate ExchangeRateProvider, commitment CommitmentCalculator, opts Options, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.FallbackRate.IsZero() {
		opts.FallbackRate = DefaultFallbackRate
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	return &Aggregator{
		balance:    balance,
		rate:       rate,
		commitment: commitment,
		opts:       opts,
		logger:     logger.WithComponent(log.ComponentAggregate),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock replaces the clock used for ComputedAt and the snapshot time.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Aggregate computes the record for set, which must hold the categorized
// subset of txs. Income and the date range are taken from the full list.
func (a *Aggregator) Aggregate(ctx context.Context, set *core.CategorizedSet, txs []core.Transaction) (core.ResultsRecord, error) {
	if len(txs) == 0 {
		return core.ResultsRecord{}, fmt.Errorf("aggregate: %w: no transactions", core.ErrValidation)
	}
	if set == nil {
		return core.ResultsRecord{}, fmt.Errorf("aggregate: %w: no categories", core.ErrValidation)
	}

	runID := a.newID()
	logger := a.logger.With(log.FieldRunID, runID)

	commitment := decimal.Zero
	if a.commitment != nil && len(a.opts.CommitmentCategories) > 0 {
		var err error
		commitment, err = a.commitment.Calculate(set, a.opts.CommitmentCategories)
		if err != nil {
			return core.ResultsRecord{}, fmt.Errorf("aggregate commitment: %w", err)
		}
	}

	now := a.now()
	start, end := DateRange(txs)
	rec := core.ResultsRecord{
		Runs:       []string{runID},
		Categories: set,
		Income:     Income(txs, a.opts.SkipPatterns),
		Expense:    Expense(set),
		Commitment: commitment,
		Snapshot: core.Snapshot{
			Balance:      a.fetchBalance(ctx, logger),
			ExchangeRate: a.fetchRate(ctx, logger),
			Holdings:     a.opts.Holdings,
			TakenAt:      now,
		},
		StartDate:  start,
		EndDate:    end,
		ComputedAt: now,
	}

	logger.Info("Results computed",
		log.FieldPeriod, rec.Period(),
		log.FieldTransactions, len(txs),
		log.FieldAmount, rec.Profit().String())
	return rec, nil
}

func (a *Aggregator) fetchBalance(ctx context.Context, logger *log.Logger) decimal.Decimal {
	if a.balance == nil {
		logger.Warn("No balance provider configured, setting balance to 0")
		return decimal.Zero
	}
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProviderTimeout)
	defer cancel()

	balance, err := a.balance.Balance(ctx)
	if err != nil {
		logger.Warn("Could not get total balance", log.FieldError, err, log.FieldFallback, "0")
		return decimal.Zero
	}
	return balance
}

func (a *Aggregator) fetchRate(ctx context.Context, logger *log.Logger) decimal.Decimal {
	if a.rate == nil {
		logger.Warn("No exchange rate provider configured", log.FieldFallback, a.opts.FallbackRate.String())
		return a.opts.FallbackRate
	}
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProviderTimeout)
	defer cancel()

	rate, err := a.rate.Rate(ctx)
	if err != nil {
		logger.Warn("Could not get exchange rate", log.FieldError, err, log.FieldFallback, a.opts.FallbackRate.String())
		return a.opts.FallbackRate
	}
	if !rate.IsPositive() {
		logger.Warn("Exchange rate provider returned a non-positive rate",
			log.FieldAmount, rate.String(), log.FieldFallback, a.opts.FallbackRate.String())
		return a.opts.FallbackRate
	}
	return rate
}

// Income sums In over every transaction whose description matches none of
// the skip patterns.
func Income(txs []core.Transaction, skip classify.Patterns) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range IncomeTransactions(txs, skip) {
		sum = sum.Add(tx.In)
	}
	return sum
}

// IncomeTransactions returns the transactions counted as income, in input order.
func IncomeTransactions(txs []core.Transaction, skip classify.Patterns) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.IsIncome() && !skip.Match(tx.Description) {
			out = append(out, tx)
		}
	}
	return out
}

// Expense sums every category total except investments.
func Expense(set *core.CategorizedSet) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range set.Categories() {
		if c.Name == core.InvestmentsCategory {
			continue
		}
		sum = sum.Add(c.Total())
	}
	return sum
}

// DateRange returns the earliest and latest booking date in txs.
func DateRange(txs []core.Transaction) (core.Date, core.Date) {
	if len(txs) == 0 {
		return core.Date{}, core.Date{}
	}
	start, end := txs[0].BookingDate, txs[0].BookingDate
	for _, tx := range txs[1:] {
		if tx.BookingDate.Before(start.Time) {
			start = tx.BookingDate
		}
		if tx.BookingDate.After(end.Time) {
			end = tx.BookingDate
		}
	}
	return start, end
}
