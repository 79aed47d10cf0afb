package ingest

import (
	"fmt"

	"regnskap/internal/core"
)

// Validate checks that txs form one period: the list is non-empty and every
// booking date falls in the same year and month as the first one.
func Validate(txs []core.Transaction) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: no transactions", core.ErrValidation)
	}
	first := txs[0].BookingDate
	for i, tx := range txs {
		if tx.BookingDate.IsZero() || tx.ValueDate.IsZero() {
			return fmt.Errorf("%w: transaction %d has no date", core.ErrValidation, i)
		}
		if tx.Out.IsNegative() || tx.In.IsNegative() {
			return fmt.Errorf("%w: transaction %d has a negative amount", core.ErrValidation, i)
		}
		if tx.BookingDate.Year() != first.Year() || tx.BookingDate.Month() != first.Month() {
			return fmt.Errorf("%w: transaction %d booked %s is outside %s",
				core.ErrValidation, i, tx.BookingDate, first.Format("2006-01"))
		}
	}
	return nil
}
