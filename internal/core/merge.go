package core

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Merge combines two period records into one cumulative record.
//
// Category lists and the remainder are concatenated and kept in transaction
// order, scalar totals are summed and the date range is widened. The
// snapshot comes from whichever input took its snapshot last. The result is
// stamped with now. Both inputs must carry the same category names, in any
// order; otherwise ErrMergeShape is returned.
func Merge(a, b ResultsRecord, now time.Time) (ResultsRecord, error) {
	names, err := mergedNames(a.Categories, b.Categories)
	if err != nil {
		return ResultsRecord{}, err
	}

	cats := NewCategorizedSet(names)
	for _, name := range names {
		ca, _ := a.Categories.Get(name)
		cb, _ := b.Categories.Get(name)
		cats.byName[name].Transactions = concatSorted(ca.Transactions, cb.Transactions)
	}
	cats.Remainder = concatSorted(a.Categories.Remainder, b.Categories.Remainder)

	runs := append(append([]string(nil), a.Runs...), b.Runs...)
	slices.Sort(runs)

	return ResultsRecord{
		Runs:       runs,
		Categories: cats,
		Income:     a.Income.Add(b.Income),
		Expense:    a.Expense.Add(b.Expense),
		Commitment: a.Commitment.Add(b.Commitment),
		Snapshot:   latestSnapshot(a.Snapshot, b.Snapshot),
		StartDate:  minDate(a.StartDate, b.StartDate),
		EndDate:    maxDate(a.EndDate, b.EndDate),
		ComputedAt: now,
	}, nil
}

// mergedNames checks both sets hold the same names. The shared order is kept
// when both agree on it, else names are sorted so that Merge(a, b) and
// Merge(b, a) produce the same layout.
func mergedNames(a, b *CategorizedSet) ([]string, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: missing categories", ErrMergeShape)
	}
	var missing []string
	for _, name := range a.order {
		if _, ok := b.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range b.order {
		if _, ok := a.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v present in only one record", ErrMergeShape, missing)
	}
	if slices.Equal(a.order, b.order) {
		return a.Names(), nil
	}
	names := a.Names()
	slices.Sort(names)
	return names, nil
}

func concatSorted(a, b []Transaction) []Transaction {
	out := make([]Transaction, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.SortStableFunc(out, CompareTransactions)
	return out
}

// CompareTransactions orders transactions by booking date, then by every
// other field, giving a total order over distinct values.
func CompareTransactions(x, y Transaction) int {
	if c := x.BookingDate.Compare(y.BookingDate.Time); c != 0 {
		return c
	}
	if c := x.ValueDate.Compare(y.ValueDate.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Description, y.Description); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Counterparty, y.Counterparty); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Type, y.Type); c != 0 {
		return c
	}
	if c := x.Out.Cmp(y.Out); c != 0 {
		return c
	}
	return x.In.Cmp(y.In)
}

// latestSnapshot picks the later snapshot. Equal timestamps fall back to
// comparing the values so the choice does not depend on argument order.
func latestSnapshot(a, b Snapshot) Snapshot {
	if c := a.TakenAt.Compare(b.TakenAt); c != 0 {
		if c > 0 {
			return a
		}
		return b
	}
	for _, c := range []int{
		a.Balance.Cmp(b.Balance),
		a.ExchangeRate.Cmp(b.ExchangeRate),
		a.Holdings.Cmp(b.Holdings),
	} {
		if c > 0 {
			return a
		}
		if c < 0 {
			return b
		}
	}
	return a
}

func minDate(a, b Date) Date {
	if b.Before(a.Time) {
		return b
	}
	return a
}

func maxDate(a, b Date) Date {
	if b.After(a.Time) {
		return b
	}
	return a
}
