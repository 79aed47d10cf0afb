package classify

import (
	"fmt"
	"regexp"
)

// Patterns is a list of compiled case-insensitive search patterns.
type Patterns []*regexp.Regexp

// CompilePatterns compiles every expression for a case-insensitive search. The
// description text is matched as-is, with no further normalization.
func CompilePatterns(exprs []string) (Patterns, error) {
	out := make(Patterns, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// MustPatterns is like CompilePatterns but panics on an invalid expression.
func MustPatterns(exprs ...string) Patterns {
	p, err := CompilePatterns(exprs)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether any pattern finds a match anywhere in text.
func (p Patterns) Match(text string) bool {
	for _, re := range p {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
