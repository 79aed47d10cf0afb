package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is a named bucket of expense transactions.
type Category struct {
	Name         string        `json:"name"`
	Transactions []Transaction `json:"transactions"`
}

// Total is the sum of the members' expense amounts, recomputed on every call.
func (c *Category) Total() decimal.Decimal {
	return SumOut(c.Transactions)
}

// Add appends a transaction to the category.
func (c *Category) Add(tx Transaction) {
	c.Transactions = append(c.Transactions, tx)
}

// SumOut sums the expense amounts of txs.
func SumOut(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Out)
	}
	return sum
}

// CategorizedSet maps category names to categories in configuration order,
// plus the transactions still waiting for a category.
type CategorizedSet struct {
	order     []string
	byName    map[string]*Category
	Remainder []Transaction
}

// NewCategorizedSet creates empty categories for names. Repeated names are
// collapsed onto their first occurrence.
func NewCategorizedSet(names []string) *CategorizedSet {
	s := &CategorizedSet{byName: make(map[string]*Category, len(names))}
	for _, name := range names {
		if _, ok := s.byName[name]; ok {
			continue
		}
		s.order = append(s.order, name)
		s.byName[name] = &Category{Name: name}
	}
	return s
}

// Names returns the category names in configuration order.
func (s *CategorizedSet) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of categories.
func (s *CategorizedSet) Len() int {
	return len(s.order)
}

// Get returns the category called name.
func (s *CategorizedSet) Get(name string) (*Category, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// At returns the i-th category in configuration order.
func (s *CategorizedSet) At(i int) *Category {
	return s.byName[s.order[i]]
}

// Categories returns the categories in configuration order.
func (s *CategorizedSet) Categories() []*Category {
	out := make([]*Category, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Assign appends tx to the category called name.
func (s *CategorizedSet) Assign(name string, tx Transaction) error {
	c, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	c.Add(tx)
	return nil
}

// Members counts the transactions held by all categories.
func (s *CategorizedSet) Members() int {
	n := 0
	for _, c := range s.byName {
		n += len(c.Transactions)
	}
	return n
}

// Snapshot takes a shallow copy of every category's transaction list, in
// configuration order. Transactions are values so the copy cannot alias.
func (s *CategorizedSet) Snapshot() [][]Transaction {
	snap := make([][]Transaction, len(s.order))
	for i, name := range s.order {
		snap[i] = append([]Transaction(nil), s.byName[name].Transactions...)
	}
	return snap
}

// Restore resets every category to a list previously returned by Snapshot.
func (s *CategorizedSet) Restore(snap [][]Transaction) {
	for i, name := range s.order {
		if i >= len(snap) {
			break
		}
		s.byName[name].Transactions = append([]Transaction(nil), snap[i]...)
	}
}

// Clone returns a copy that shares no slices with s.
func (s *CategorizedSet) Clone() *CategorizedSet {
	c := NewCategorizedSet(s.order)
	for i, txs := range s.Snapshot() {
		c.byName[s.order[i]].Transactions = txs
	}
	c.Remainder = append([]Transaction(nil), s.Remainder...)
	return c
}

type categorizedSetJSON struct {
	Categories []*Category   `json:"categories"`
	Remainder  []Transaction `json:"remainder,omitempty"`
}

// MarshalJSON encodes the categories as an ordered list.
func (s *CategorizedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(categorizedSetJSON{Categories: s.Categories(), Remainder: s.Remainder})
}

// UnmarshalJSON decodes the ordered list written by MarshalJSON.
func (s *CategorizedSet) UnmarshalJSON(data []byte) error {
	var raw categorizedSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	names := make([]string, 0, len(raw.Categories))
	for _, c := range raw.Categories {
		names = append(names, c.Name)
	}
	*s = *NewCategorizedSet(names)
	for _, c := range raw.Categories {
		s.byName[c.Name].Transactions = append(s.byName[c.Name].Transactions, c.Transactions...)
	}
	s.Remainder = raw.Remainder
	return nil
}
