// Package classify sorts expense transactions into categories using ordered
// regex rules.
package classify

import (
	"fmt"

	"regnskap/internal/core"
	"regnskap/internal/log"
)

// Rule claims a transaction for Category when any of its patterns matches
// the description.
type Rule struct {
	Category string
	Patterns Patterns
}

// Definition is an uncompiled rule as it appears in the settings file.
type Definition struct {
	Name     string
	Patterns []string
}

// Classifier applies rules in declared order. The first matching rule wins,
// so more specific rules must be declared before more general ones.
type Classifier struct {
	rules  []Rule
	skip   Patterns
	logger *log.Logger
}

// New creates a classifier. Transactions that match no rule but match a
// skip pattern are dropped instead of being left for manual resolution.
func New(rules []Rule, skip Patterns, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Classifier{
		rules:  rules,
		skip:   skip,
		logger: logger.WithComponent(log.ComponentClassify),
	}
}

// Compile builds a classifier from uncompiled definitions.
func Compile(defs []Definition, skip []string, logger *log.Logger) (*Classifier, error) {
	rules := make([]Rule, 0, len(defs))
	for _, d := range defs {
		p, err := CompilePatterns(d.Patterns)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", d.Name, err)
		}
		rules = append(rules, Rule{Category: d.Name, Patterns: p})
	}
	skipPatterns, err := CompilePatterns(skip)
	if err != nil {
		return nil, fmt.Errorf("skip patterns: %w", err)
	}
	return New(rules, skipPatterns, logger), nil
}

// Categories returns the rule category names in declared order.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.Category)
	}
	return names
}

// Skip returns the global skip patterns.
func (c *Classifier) Skip() Patterns {
	return c.skip
}

// Classify partitions the expense transactions of txs. Every transaction with
// a positive expense amount ends up in exactly one category, in the
// remainder, or dropped by a skip pattern. Income-only transactions are
// ignored.
func (c *Classifier) Classify(txs []core.Transaction) *core.CategorizedSet {
	set := core.NewCategorizedSet(c.Categories())
	var matched, skipped int

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		if name, ok := c.match(tx.Description); ok {
			// Assign cannot fail: the set was built from the rule names.
			_ = set.Assign(name, tx)
			matched++
			continue
		}
		if c.skip.Match(tx.Description) {
			skipped++
			continue
		}
		set.Remainder = append(set.Remainder, tx)
	}

	c.logger.Info("Classified transactions",
		log.FieldTransactions, len(txs),
		log.FieldMatched, matched,
		log.FieldSkipped, skipped,
		log.FieldRemainder, len(set.Remainder))
	return set
}

func (c *Classifier) match(text string) (string, bool) {
	for _, r := range c.rules {
		if r.Patterns.Match(text) {
			return r.Category, true
		}
	}
	return "", false
}
