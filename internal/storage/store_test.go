package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/storage"
	"regnskap/internal/storage/memory"
)

func record(t *testing.T, run string, takenAt time.Time, start, end int, rent string) core.ResultsRecord {
	t.Helper()
	set := core.NewCategorizedSet([]string{"housing", "subscriptions"})
	require.NoError(t, set.Assign("housing", core.Transaction{
		BookingDate: core.NewDate(2023, 3, start),
		ValueDate:   core.NewDate(2023, 3, start),
		Description: "Husleie",
		Out:         decimal.RequireFromString(rent),
	}))
	return core.ResultsRecord{
		Runs:       []string{run},
		Categories: set,
		Income:     decimal.NewFromInt(500),
		Expense:    decimal.RequireFromString(rent),
		Commitment: decimal.RequireFromString(rent),
		Snapshot: core.Snapshot{
			Balance:      decimal.NewFromInt(1000),
			ExchangeRate: decimal.NewFromInt(300),
			Holdings:     decimal.RequireFromString("1.5"),
			TakenAt:      takenAt,
		},
		StartDate:  core.NewDate(2023, 3, start),
		EndDate:    core.NewDate(2023, 3, end),
		ComputedAt: takenAt,
	}
}

func stores(t *testing.T) map[string]storage.ResultsStore {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "regnskap.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return map[string]storage.ResultsStore{
		"sqlite": repo,
		"memory": memory.New(),
	}
}

func TestResultsStore(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, "2023-03")
			assert.ErrorIs(t, err, storage.ErrNotFound)

			rec := record(t, "run-1", at, 1, 28, "9000")
			require.NoError(t, store.Save(ctx, "2023-03", rec))
			require.NoError(t, store.Save(ctx, "2023-01", record(t, "run-0", at, 2, 3, "100")))

			got, err := store.Load(ctx, "2023-03")
			require.NoError(t, err)
			assert.Equal(t, []string{"run-1"}, got.Runs)
			assert.Equal(t, rec.Categories.Names(), got.Categories.Names())
			housing, ok := got.Categories.Get("housing")
			require.True(t, ok)
			assert.True(t, decimal.NewFromInt(9000).Equal(housing.Total()))
			assert.True(t, rec.Income.Equal(got.Income))
			assert.True(t, rec.Snapshot.Holdings.Equal(got.Snapshot.Holdings))
			assert.Equal(t, rec.StartDate, got.StartDate)
			assert.Equal(t, rec.EndDate, got.EndDate)
			assert.True(t, rec.ComputedAt.Equal(got.ComputedAt))

			periods, err := store.Periods(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"2023-01", "2023-03"}, periods)

			latest, err := storage.Latest(ctx, store)
			require.NoError(t, err)
			assert.Equal(t, []string{"run-1"}, latest.Runs)

			// Save replaces
			require.NoError(t, store.Save(ctx, "2023-03", record(t, "run-2", at, 1, 28, "8000")))
			got, err = store.Load(ctx, "2023-03")
			require.NoError(t, err)
			assert.Equal(t, []string{"run-2"}, got.Runs)
		})
	}
}

func TestSaveMerged(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2023, 3, 15, 9, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	mergedAt := second.Add(time.Hour)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := record(t, "run-a", first, 1, 15, "9000")
			written, err := storage.SaveMerged(ctx, store, "2023-03", a, mergedAt)
			require.NoError(t, err)
			assert.Equal(t, []string{"run-a"}, written.Runs, "first save stores the record as is")

			b := record(t, "run-b", second, 16, 31, "500")
			written, err = storage.SaveMerged(ctx, store, "2023-03", b, mergedAt)
			require.NoError(t, err)

			got, err := store.Load(ctx, "2023-03")
			require.NoError(t, err)
			assert.Equal(t, []string{"run-a", "run-b"}, got.Runs)
			assert.Equal(t, written.Runs, got.Runs)
			assert.True(t, decimal.NewFromInt(1000).Equal(got.Income))
			assert.True(t, decimal.NewFromInt(9500).Equal(got.Expense))
			assert.Equal(t, core.NewDate(2023, 3, 1), got.StartDate)
			assert.Equal(t, core.NewDate(2023, 3, 31), got.EndDate)
			assert.True(t, second.Equal(got.Snapshot.TakenAt), "later snapshot wins")
			assert.True(t, mergedAt.Equal(got.ComputedAt))

			housing, _ := got.Categories.Get("housing")
			assert.Len(t, housing.Transactions, 2)
		})
	}
}

func TestSaveMergedShapeMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	at := time.Date(2023, 3, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, "2023-03", record(t, "run-a", at, 1, 2, "1")))

	other := record(t, "run-b", at, 3, 4, "1")
	other.Categories = core.NewCategorizedSet([]string{"food"})
	_, err := storage.SaveMerged(ctx, store, "2023-03", other, at)
	assert.ErrorIs(t, err, core.ErrMergeShape)

	got, err := store.Load(ctx, "2023-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a"}, got.Runs, "stored record is untouched")
}

func TestInvalidPeriod(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"", "2023-3", "2023-13", "23-03", "2023-03-01"} {
				_, err := store.Load(ctx, p)
				assert.ErrorIs(t, err, storage.ErrInvalidPeriod, p)
				assert.ErrorIs(t, store.Save(ctx, p, core.ResultsRecord{}), storage.ErrInvalidPeriod, p)
			}
		})
	}
}

func TestLatestEmpty(t *testing.T) {
	_, err := storage.Latest(context.Background(), memory.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
