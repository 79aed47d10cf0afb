package resolve

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"regnskap/internal/core"
)

// Console is the interactive channel both loops talk through.
type Console interface {
	Ask() (string, error)
	Printf(format string, args ...any)
	Writer() io.Writer
}

type choiceKind int

const (
	choiceCategory choiceKind = iota
	choiceSkip
	choiceEnd
	choiceAbort
	choicePrint
	choiceHelp
)

type choice struct {
	kind  choiceKind
	index int
}

// parseChoice accepts a category index in [0, n) or one of the control letters.
func parseChoice(answer string, n int) (choice, error) {
	switch answer {
	case "s":
		return choice{kind: choiceSkip}, nil
	case "e":
		return choice{kind: choiceEnd}, nil
	case "a":
		return choice{kind: choiceAbort}, nil
	case "p":
		return choice{kind: choicePrint}, nil
	case "h":
		return choice{kind: choiceHelp}, nil
	}
	idx, ok := parseIndex(answer, n)
	if !ok {
		return choice{}, fmt.Errorf("%w: %q", core.ErrInvalidChoice, answer)
	}
	return choice{kind: choiceCategory, index: idx}, nil
}

// parseIndex accepts plain decimal digits only; signs and spaces are rejected.
func parseIndex(answer string, n int) (int, bool) {
	if answer == "" || strings.TrimLeft(answer, "0123456789") != "" {
		return 0, false
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx >= n {
		return 0, false
	}
	return idx, true
}

const controlMenu = `  a: Abort. Reset any previous choices and return.
  s: Skip. Put the transaction in a remainder list and continue to the next one.
  e: End. Skip the remaining transactions and return current choices.
  p: Print category choices.
  h: Print all available choices.
`

func categoryMenu(names []string) string {
	var b strings.Builder
	for i, name := range names {
		fmt.Fprintf(&b, "  %d: %s\n", i, name)
	}
	return b.String()
}

func transactionLine(tx core.Transaction) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s", tx.BookingDate, core.FormatAmount(tx.Out), tx.Type, tx.Description)
}

// writeExpenseTable prints txs with their index, date, amount and text.
func writeExpenseTable(w io.Writer, txs []core.Transaction) {
	amounts := make([]string, len(txs))
	width := 0
	for i, tx := range txs {
		amounts[i] = core.FormatAmount(tx.Out)
		width = max(width, len(amounts[i]))
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, tx := range txs {
		fmt.Fprintf(tw, "%3d\t%s\t%*s\t%s\n", i, tx.BookingDate, width, amounts[i], tx.Description)
	}
	tw.Flush()
}
