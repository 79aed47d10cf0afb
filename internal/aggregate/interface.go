package aggregate

import (
	"context"

	"github.com/shopspring/decimal"

	"regnskap/internal/core"
)

// BalanceProvider reports the current total account balance.
//
//go:generate mockgen -destination=mocks/mock_providers.go -source=interface.go
type BalanceProvider interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// ExchangeRateProvider reports the price of one holdings unit in the
// reporting currency.
type ExchangeRateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// CommitmentCalculator sums the consumption-commitment categories.
type CommitmentCalculator interface {
	Calculate(set *core.CategorizedSet, names []string) (decimal.Decimal, error)
}
