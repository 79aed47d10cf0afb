package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"regnskap/internal/classify"
	"regnskap/internal/log"
)

// Amount is a decimal read from a YAML scalar without going through float64.
type Amount struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", node.Line, node.Value)
	}
	a.Decimal = d
	return nil
}

// CategorySettings is one ordered category definition.
type CategorySettings struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// Settings is the user's accounting setup: categories, patterns and the
// values that are not fetched from providers.
type Settings struct {
	Prompt               string             `yaml:"prompt"`
	Currency             string             `yaml:"currency"`
	Categories           []CategorySettings `yaml:"categories"`
	SkipPatterns         []string           `yaml:"skip_patterns"`
	CommitmentCategories []string           `yaml:"consumption_commitment_categories"`
	WriteOrder           []string           `yaml:"write_order"`
	Holdings             Amount             `yaml:"holdings"`
	FallbackExchangeRate Amount             `yaml:"fallback_exchange_rate"`
}

// DefaultSettings returns the values used for keys missing from the file.
func DefaultSettings() Settings {
	return Settings{
		Prompt:               "> ",
		Currency:             "NOK",
		FallbackExchangeRate: Amount{decimal.NewFromInt(300)},
	}
}

// LoadSettings reads and validates the YAML settings file at path.
func LoadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings file: %w", err)
	}
	defer f.Close()

	s, err := ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return s, nil
}

// ParseSettings decodes settings from r. Unknown keys are rejected.
func ParseSettings(r io.Reader) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("settings are empty")
		}
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names and patterns and returns every problem at once.
func (s *Settings) Validate() error {
	var problems []string

	if len(s.Categories) == 0 {
		problems = append(problems, "at least one category is required")
	}

	seen := make(map[string]bool, len(s.Categories))
	for i, c := range s.Categories {
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("category %d has no name", i))
			continue
		case name != c.Name:
			problems = append(problems, fmt.Sprintf("category '%s' has surrounding whitespace", c.Name))
		case seen[name]:
			problems = append(problems, fmt.Sprintf("duplicate category '%s'", name))
		}
		seen[name] = true
		if _, err := classify.CompilePatterns(c.Patterns); err != nil {
			problems = append(problems, fmt.Sprintf("category '%s': %v", name, err))
		}
	}

	if _, err := classify.CompilePatterns(s.SkipPatterns); err != nil {
		problems = append(problems, fmt.Sprintf("skip patterns: %v", err))
	}

	for _, name := range s.CommitmentCategories {
		if !seen[name] {
			problems = append(problems, fmt.Sprintf("consumption commitment category '%s' is not a defined category", name))
		}
	}

	if s.Holdings.IsNegative() {
		problems = append(problems, fmt.Sprintf("holdings %s must not be negative", s.Holdings))
	}
	if !s.FallbackExchangeRate.IsPositive() {
		problems = append(problems, fmt.Sprintf("fallback exchange rate %s must be positive", s.FallbackExchangeRate))
	}

	if len(problems) > 0 {
		return fmt.Errorf("settings validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// CategoryNames returns the category names in declared order.
func (s *Settings) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Definitions converts the categories for classify.Compile.
func (s *Settings) Definitions() []classify.Definition {
	defs := make([]classify.Definition, 0, len(s.Categories))
	for _, c := range s.Categories {
		defs = append(defs, classify.Definition{Name: c.Name, Patterns: c.Patterns})
	}
	return defs
}

// Classifier compiles the category rules and skip patterns.
func (s *Settings) Classifier(logger *log.Logger) (*classify.Classifier, error) {
	return classify.Compile(s.Definitions(), s.SkipPatterns, logger)
}
