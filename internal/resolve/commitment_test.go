package resolve

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnskap/internal/core"
	"regnskap/internal/log"
)

func commitmentSet(t *testing.T) *core.CategorizedSet {
	t.Helper()
	set := core.NewCategorizedSet([]string{"housing", "food", "insurance", "travel"})
	require.NoError(t, set.Assign("housing", expense(1, "Husleie", "9000")))
	require.NoError(t, set.Assign("insurance", expense(2, "Gjensidige", "450.50")))
	require.NoError(t, set.Assign("insurance", expense(3, "If", "120")))
	require.NoError(t, set.Assign("travel", expense(4, "Ruter", "800")))
	return set
}

func TestCalculateExcludeEverything(t *testing.T) {
	set := commitmentSet(t)
	console, out := scripted("0", "x")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"housing"})
	require.NoError(t, err)

	assert.True(t, got.IsZero(), "got %s", got)
	assert.Contains(t, out.String(), "Husleie")
}

func TestCalculateConfirmKeepsAll(t *testing.T) {
	set := commitmentSet(t)
	console, _ := scripted("x", "x")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"housing", "insurance"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9570.50").Equal(got), "got %s", got)
}

func TestCalculateExcludeByCurrentIndex(t *testing.T) {
	set := commitmentSet(t)
	// index 0 is Gjensidige; after removal If becomes index 0, and 1 is out of range
	console, out := scripted("0", "1", "x")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"insurance"})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(120).Equal(got), "got %s", got)
	assert.Contains(t, out.String(), "Invalid choice '1', please try again.")

	// the category itself is untouched
	cat, _ := set.Get("insurance")
	assert.Len(t, cat.Transactions, 2)
}

func TestCalculateSkipsEmptyCategories(t *testing.T) {
	set := commitmentSet(t)
	// food is empty and never prompts, so a single answer covers travel
	console, _ := scripted("x")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"food", "travel"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(800).Equal(got), "got %s", got)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	set := commitmentSet(t)
	console, out := scripted("-1", "abc", " 0", "X", "x")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"travel"})
	require.NoError(t, err)

	// the console trims " 0" to "0", so only three answers are invalid
	assert.True(t, got.IsZero(), "got %s", got)
	assert.Equal(t, 3, strings.Count(out.String(), "Invalid choice"))
}

func TestCalculateInputClosed(t *testing.T) {
	set := commitmentSet(t)
	// housing excludes its only member; input then ends while insurance is open
	console, _ := scripted("0", "x", "1")

	got, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"housing", "insurance", "travel"})
	require.NoError(t, err)

	// insurance keeps the exclusion of If, travel is counted in full
	want := decimal.RequireFromString("450.50").Add(decimal.NewFromInt(800))
	assert.True(t, want.Equal(got), "got %s, want %s", got, want)
}

func TestCalculateUnknownCategory(t *testing.T) {
	set := commitmentSet(t)
	console, _ := scripted()

	_, err := NewCommitmentCalculator(console, log.Discard()).Calculate(set, []string{"pets"})
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestReconcileWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := log.New(log.Config{Level: log.ParseLevel("warn"), Output: &logs})
	console, _ := scripted()
	c := NewCommitmentCalculator(console, logger)

	c.reconcile("housing", decimal.NewFromInt(100), decimal.NewFromInt(60), decimal.RequireFromString("39.95"))
	assert.Empty(t, logs.String())

	c.reconcile("housing", decimal.NewFromInt(100), decimal.NewFromInt(60), decimal.NewFromInt(30))
	assert.Contains(t, logs.String(), "does not reconcile")
	assert.Contains(t, logs.String(), "housing")
}

func TestWriteExpenseTable(t *testing.T) {
	var buf bytes.Buffer
	writeExpenseTable(&buf, []core.Transaction{
		expense(1, "Husleie", "9000"),
		expense(2, "If", "120"),
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  0"))
	assert.Contains(t, lines[0], "2023-03-01")
	assert.Contains(t, lines[0], "9,000.00")
	assert.Contains(t, lines[1], "  120.00")
	assert.True(t, strings.HasSuffix(lines[1], "If"))
}
