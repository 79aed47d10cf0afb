package resolve

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/prompt"
)

// ReconcileTolerance is the largest accepted gap between a category total
// and the included plus excluded sums.
var ReconcileTolerance = decimal.NewFromFloat(0.1)

// CommitmentCalculator sums the consumption-commitment categories and lets
// the user exclude single transactions from that sum.
type CommitmentCalculator struct {
	console Console
	logger  *log.Logger
}

// NewCommitmentCalculator creates a calculator talking through console.
func NewCommitmentCalculator(console Console, logger *log.Logger) *CommitmentCalculator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CommitmentCalculator{console: console, logger: logger.WithComponent(log.ComponentCommit)}
}

// Calculate returns the sum of the named categories' totals minus every
// transaction the user excludes. Categories are visited in the given order
// and only prompted for when they have members. If input ends, the choices
// made so far are kept and the remaining categories are counted in full.
func (c *CommitmentCalculator) Calculate(set *core.CategorizedSet, names []string) (decimal.Decimal, error) {
	commitment := decimal.Zero
	closed := false

	for _, name := range names {
		cat, ok := set.Get(name)
		if !ok {
			return decimal.Zero, fmt.Errorf("commitment category: %w: %q", core.ErrUnknownCategory, name)
		}
		total := cat.Total()
		commitment = commitment.Add(total)

		included := append([]core.Transaction(nil), cat.Transactions...)
		var excluded []core.Transaction
		if len(included) > 0 && !closed {
			var err error
			included, excluded, err = c.exclude(included)
			if errors.Is(err, prompt.ErrClosed) {
				c.logger.Warn("Input closed, keeping current commitment choices", log.FieldCategory, name)
				closed = true
			} else if err != nil {
				return decimal.Zero, err
			}
		}

		excludedSum := core.SumOut(excluded)
		c.reconcile(name, total, core.SumOut(included), excludedSum)
		commitment = commitment.Sub(excludedSum)
	}
	return commitment, nil
}

// exclude runs the exclusion loop for one category. A valid index moves that
// transaction from included to excluded and redraws the table; x confirms.
func (c *CommitmentCalculator) exclude(included []core.Transaction) ([]core.Transaction, []core.Transaction, error) {
	var excluded []core.Transaction

	c.console.Printf("Choose the numbers of any transactions below that should not be counted as consumption commitments.\n")
	c.console.Printf("Press 'x' to confirm current choices\n")
	writeExpenseTable(c.console.Writer(), included)

	for {
		answer, err := c.console.Ask()
		if err != nil {
			return included, excluded, err
		}
		if answer == "x" {
			return included, excluded, nil
		}
		idx, ok := parseIndex(answer, len(included))
		if !ok {
			c.console.Printf("Invalid choice '%s', please try again.\n", answer)
			continue
		}
		excluded = append(excluded, included[idx])
		included = append(included[:idx:idx], included[idx+1:]...)
		if len(included) > 0 {
			writeExpenseTable(c.console.Writer(), included)
		}
	}
}

func (c *CommitmentCalculator) reconcile(name string, total, included, excluded decimal.Decimal) {
	gap := total.Sub(excluded).Sub(included).Abs()
	if gap.LessThan(ReconcileTolerance) {
		return
	}
	c.logger.Warn("Commitment exclusion does not reconcile with category total",
		log.FieldCategory, name,
		log.FieldExpected, total.String(),
		log.FieldIncluded, included.String(),
		log.FieldExcluded, excluded.String())
}
