// Package resolve holds the interactive loops that finish what automatic
// classification leaves open: assigning remainder transactions to
// categories, and excluding transactions from the consumption commitments.
package resolve

import (
	"fmt"

	"regnskap/internal/core"
	"regnskap/internal/log"
)

// Outcome tells how a resolution session ended.
type Outcome int

const (
	// Completed means every pending transaction was assigned or skipped.
	Completed Outcome = iota
	// Ended means the user stopped early; unvisited transactions are returned.
	Ended
	// Aborted means every assignment of the session was rolled back.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Ended:
		return "ended"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a session returns. Remainder is nil after an abort.
type Result struct {
	Outcome   Outcome
	Assigned  int
	Remainder []core.Transaction
}

// Resolver asks the user to place each pending transaction in a category.
type Resolver struct {
	console Console
	logger  *log.Logger
}

// NewResolver creates a resolver talking through console.
func NewResolver(console Console, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Resolver{console: console, logger: logger.WithComponent(log.ComponentResolve)}
}

// Resolve runs the menu loop over pending, assigning into set.
//
// The category lists are snapshotted once before the first prompt. Abort
// restores that snapshot and returns no remainder. End returns the skipped
// transactions followed by the current and all unvisited ones, in their
// original order. On normal completion Assigned + len(Remainder) ==
// len(pending). If input fails the session is rolled back as for abort and
// the read error is returned.
func (r *Resolver) Resolve(set *core.CategorizedSet, pending []core.Transaction) (Result, error) {
	if len(pending) == 0 {
		return Result{Outcome: Completed}, nil
	}

	names := set.Names()
	menu := categoryMenu(names)
	r.console.Printf("For each transaction, please choose a category from the below list by typing the corresponding number.\n")
	r.console.Printf("%s", menu)

	backup := set.Snapshot()
	var skipped []core.Transaction
	assigned := 0

	for i, tx := range pending {
		r.console.Printf("%s\n", transactionLine(tx))

	prompt:
		for {
			answer, err := r.console.Ask()
			if err != nil {
				set.Restore(backup)
				r.finish(Aborted, assigned, 0)
				return Result{Outcome: Aborted}, fmt.Errorf("resolve transaction %d of %d: %w", i+1, len(pending), err)
			}

			ch, err := parseChoice(answer, len(names))
			if err != nil {
				r.console.Printf("Invalid choice: %q.\n", answer)
				r.printHelp(menu)
				continue
			}

			switch ch.kind {
			case choiceCategory:
				if err := set.Assign(names[ch.index], tx); err != nil {
					return Result{}, err
				}
				assigned++
				break prompt
			case choiceSkip:
				skipped = append(skipped, tx)
				break prompt
			case choiceEnd:
				remainder := make([]core.Transaction, 0, len(skipped)+len(pending)-i)
				remainder = append(remainder, skipped...)
				remainder = append(remainder, pending[i:]...)
				r.finish(Ended, assigned, len(remainder))
				return Result{Outcome: Ended, Assigned: assigned, Remainder: remainder}, nil
			case choiceAbort:
				set.Restore(backup)
				r.finish(Aborted, assigned, 0)
				return Result{Outcome: Aborted}, nil
			case choicePrint:
				r.console.Printf("%s", menu)
			case choiceHelp:
				r.printHelp(menu)
			}
		}
	}

	r.finish(Completed, assigned, len(skipped))
	return Result{Outcome: Completed, Assigned: assigned, Remainder: skipped}, nil
}

func (r *Resolver) printHelp(menu string) {
	r.console.Printf("Please select an option from the choices below.\n\n")
	r.console.Printf("Control options:\n%s\n", controlMenu)
	r.console.Printf("Category options:\n%s\n", menu)
}

func (r *Resolver) finish(outcome Outcome, assigned, remainder int) {
	r.logger.Info("Manual categorization finished",
		log.FieldOutcome, outcome.String(),
		log.FieldAssigned, assigned,
		log.FieldRemainder, remainder)
}
