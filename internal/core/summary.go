package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string
	Amount  decimal.Decimal
	Percent decimal.Decimal // share of the sum over all categories
}

// Breakdown lists every category total in configuration order together
// with its share of the sum of all category totals.
func (s *CategorizedSet) Breakdown() []CategoryAmount {
	cats := s.Categories()
	sum := decimal.Zero
	for _, c := range cats {
		sum = sum.Add(c.Total())
	}
	denom := decimal.Max(decimal.NewFromFloat(0.01), sum)
	hundred := decimal.NewFromInt(100)

	out := make([]CategoryAmount, 0, len(cats))
	for _, c := range cats {
		total := c.Total()
		out = append(out, CategoryAmount{
			Name:    c.Name,
			Amount:  total,
			Percent: total.Div(denom).Mul(hundred).Round(1),
		})
	}
	return out
}
