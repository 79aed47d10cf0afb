package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentsCategory holds asset transfers. It is never counted as spend.
const InvestmentsCategory = "investments"

type (
	Date struct {
		time.Time
	}

	// Transaction is one statement line. It is treated as an immutable value:
	// categories hold copies, never pointers.
	Transaction struct {
		BookingDate  Date            `json:"date_book"`
		ValueDate    Date            `json:"date_value"`
		Counterparty string          `json:"account_to"`
		Type         string          `json:"type"`
		Description  string          `json:"text"`
		Out          decimal.Decimal `json:"out"`
		In           decimal.Decimal `json:"in"`
	}

	// Snapshot carries the externally supplied point-in-time values of a run.
	Snapshot struct {
		Balance      decimal.Decimal `json:"total_balance"`
		ExchangeRate decimal.Decimal `json:"exchange_rate"`
		Holdings     decimal.Decimal `json:"holdings"`
		TakenAt      time.Time       `json:"taken_at"`
	}

	// ResultsRecord is one period's categorized financial summary.
	ResultsRecord struct {
		Runs       []string        `json:"runs"`
		Categories *CategorizedSet `json:"categories"`
		Income     decimal.Decimal `json:"sum_in"`
		Expense    decimal.Decimal `json:"sum_out"`
		Commitment decimal.Decimal `json:"sum_cons_commit"`
		Snapshot   Snapshot        `json:"snapshot"`
		StartDate  Date            `json:"start_date"`
		EndDate    Date            `json:"end_date"`
		ComputedAt time.Time       `json:"date"`
	}
)

var (
	ErrValidation      = errors.New("invalid transactions")
	ErrExternalService = errors.New("external service failure")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrMergeShape      = errors.New("category keysets differ")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// IsExpense reports whether the transaction moves money out.
func (t Transaction) IsExpense() bool {
	return t.Out.IsPositive()
}

// IsIncome reports whether the transaction moves money in.
func (t Transaction) IsIncome() bool {
	return t.In.IsPositive()
}

// HoldingsValue is the holdings quantity priced at the snapshot rate.
func (s Snapshot) HoldingsValue() decimal.Decimal {
	return s.Holdings.Mul(s.ExchangeRate)
}

// Period is the storage key of the record: the year and month of its start date.
func (r ResultsRecord) Period() string {
	return r.StartDate.Format("2006-01")
}

// Profit is income minus expense.
func (r ResultsRecord) Profit() decimal.Decimal {
	return r.Income.Sub(r.Expense)
}

// ShareOfIncome returns v as a fraction of income. Income below 0.01 is
// clamped to 0.01 so an empty period does not divide by zero.
func (r ResultsRecord) ShareOfIncome(v decimal.Decimal) decimal.Decimal {
	floor := decimal.NewFromFloat(0.01)
	return v.Div(decimal.Max(floor, r.Income))
}
