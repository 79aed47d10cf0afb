// Package report renders results for the console and the spreadsheet row.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"regnskap/internal/core"
	"regnskap/internal/sheets"
)

const dayMonth = "02/01"

var hundred = decimal.NewFromInt(100)

// Printer writes human readable tables to w.
type Printer struct {
	w        io.Writer
	currency string
	heading  *color.Color
	negative *color.Color
}

// NewPrinter returns a Printer. Colors are only used when useColor is set.
func NewPrinter(w io.Writer, currency string, useColor bool) *Printer {
	if currency == "" {
		currency = "NOK"
	}
	p := &Printer{
		w:        w,
		currency: currency,
		heading:  color.New(color.Bold, color.FgCyan),
		negative: color.New(color.FgRed),
	}
	if !useColor {
		p.heading.DisableColor()
		p.negative.DisableColor()
	}
	return p
}

func (p *Printer) money(d decimal.Decimal) string {
	s := core.FormatAmount(d) + " " + p.currency
	if d.IsNegative() {
		return p.negative.Sprint(s)
	}
	return s
}

// PrintIncome lists income transactions with their total.
func (p *Printer) PrintIncome(txs []core.Transaction) {
	p.heading.Fprintln(p.w, "Income:")
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date booked\tIn\t")
	total := decimal.Zero
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t  %s\n", tx.BookingDate, core.FormatAmount(tx.In), tx.Description)
		total = total.Add(tx.In)
	}
	tw.Flush()
	fmt.Fprintf(p.w, "Total: %s\n", p.money(total))
}

// PrintCategories lists every transaction per category with the category sums.
func (p *Printer) PrintCategories(set *core.CategorizedSet) {
	p.heading.Fprintln(p.w, "Transactions")
	for _, c := range set.Categories() {
		fmt.Fprintf(p.w, "\n%s:\n", c.Name)
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		in := decimal.Zero
		for _, tx := range c.Transactions {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", tx.BookingDate, core.FormatAmount(tx.Out), tx.Description)
			in = in.Add(tx.In)
		}
		tw.Flush()
		fmt.Fprintf(p.w, "Sum in: %s, sum out: %s\n", p.money(in), p.money(c.Total()))
	}
}

// PrintResults prints the category table followed by the period summary.
func (p *Printer) PrintResults(rec core.ResultsRecord) {
	p.heading.Fprintln(p.w, "Expense categories:")
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Category\tOut [%s]\tOut [%%]\t\n", p.currency)
	if rec.Categories != nil {
		for _, c := range rec.Categories.Breakdown() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", c.Name, core.FormatAmount(c.Amount), c.Percent.StringFixed(1))
		}
	}
	tw.Flush()

	profit := rec.Profit()
	fmt.Fprintln(p.w)
	p.heading.Fprintf(p.w, "In total for transactions between %s and %s\n",
		rec.StartDate.Format(dayMonth), rec.EndDate.Format("02/01/2006"))

	tw = tabwriter.NewWriter(p.w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "In:\t%s\n", p.money(rec.Income))
	fmt.Fprintf(tw, "Out:\t%s\n", p.money(rec.Expense))
	fmt.Fprintf(tw, "Balance:\t%s\n", p.money(rec.Snapshot.Balance))
	fmt.Fprintf(tw, "Holdings value:\t%s\n", p.money(rec.Snapshot.HoldingsValue()))
	fmt.Fprintf(tw, "Consumption commitments:\t%s\n", p.money(rec.Commitment))
	fmt.Fprintf(tw, "Consumption fraction:\t%s %%\n", rec.ShareOfIncome(rec.Commitment).Mul(hundred).StringFixed(2))
	fmt.Fprintf(tw, "Operating profit:\t%s\n", p.money(profit))
	fmt.Fprintf(tw, "Operating margin:\t%s %%\n", rec.ShareOfIncome(profit).Mul(hundred).StringFixed(2))
	tw.Flush()
}

// PrintPeriods lists the stored periods with one column per destination,
// marking the periods that destination already holds with "x". A
// destination that could not be listed shows "?" and is explained below
// the table.
func (p *Printer) PrintPeriods(periods []string, exported []sheets.DestinationPeriods) {
	if len(periods) == 0 {
		fmt.Fprintln(p.w, "No stored periods")
		return
	}

	held := make([]map[string]bool, len(exported))
	for i, d := range exported {
		held[i] = make(map[string]bool, len(d.Periods))
		for _, period := range d.Periods {
			held[i][period] = true
		}
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "Period")
	for _, d := range exported {
		fmt.Fprintf(tw, "\t%s", d.Name)
	}
	fmt.Fprintln(tw)
	for _, period := range periods {
		fmt.Fprint(tw, period)
		for i, d := range exported {
			mark := "-"
			switch {
			case d.Err != nil:
				mark = "?"
			case held[i][period]:
				mark = "x"
			}
			fmt.Fprintf(tw, "\t%s", mark)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	for _, d := range exported {
		if d.Err != nil {
			fmt.Fprintf(p.w, "%s: could not list periods: %v\n", d.Name, d.Err)
		}
	}
}

// SpreadsheetRow lays rec out as one spreadsheet row: the end month, the
// category totals in writeOrder (0.00 when absent), an empty separator, then
// in, out, profit, commitment share of income ("inf" without income),
// exchange rate, balance and holdings value.
func SpreadsheetRow(rec core.ResultsRecord, writeOrder []string) []string {
	row := make([]string, 0, len(writeOrder)+9)
	row = append(row, rec.EndDate.Format("2006-01"))

	for _, name := range writeOrder {
		total := decimal.Zero
		if rec.Categories != nil {
			if c, ok := rec.Categories.Get(name); ok {
				total = c.Total()
			}
		}
		row = append(row, total.StringFixed(2))
	}
	row = append(row, "")

	in := rec.Income.Round(2)
	out := rec.Expense.Round(2)
	share := "inf"
	if in.IsPositive() {
		share = rec.Commitment.DivRound(in, 6).String()
	}

	return append(row,
		in.StringFixed(2),
		out.StringFixed(2),
		in.Sub(out).StringFixed(2),
		share,
		rec.Snapshot.ExchangeRate.String(),
		rec.Snapshot.Balance.StringFixed(2),
		rec.Snapshot.HoldingsValue().StringFixed(2),
	)
}
