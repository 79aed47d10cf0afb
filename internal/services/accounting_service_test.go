package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnskap/internal/aggregate"
	mock_aggregate "regnskap/internal/aggregate/mocks"
	"regnskap/internal/cache"
	"regnskap/internal/classify"
	"regnskap/internal/core"
	"regnskap/internal/log"
	"regnskap/internal/prompt"
	"regnskap/internal/providers"
	"regnskap/internal/resolve"
	"regnskap/internal/storage"
	"regnskap/internal/storage/memory"
)

func tx(day int, text, out, in string) core.Transaction {
	return core.Transaction{
		BookingDate: core.NewDate(2023, 3, day),
		ValueDate:   core.NewDate(2023, 3, day),
		Description: text,
		Out:         decimal.RequireFromString(out),
		In:          decimal.RequireFromString(in),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func march() []core.Transaction {
	return []core.Transaction{
		tx(3, "Husleie mars", "9000", "0"),
		tx(10, "Rema 1000 Grünerløkka", "450", "0"),
		tx(14, "Netflix.com", "129", "0"),
		tx(18, "Kiwi Torshov", "200", "0"),
		tx(20, "Overføring sparekonto", "1000", "0"),
		tx(25, "Lønn", "0", "30000"),
	}
}

type fakePublisher struct {
	periods []string
	err     error
}

func (f *fakePublisher) PublishResults(_ context.Context, period string, _ core.ResultsRecord) error {
	f.periods = append(f.periods, period)
	return f.err
}

func newService(t *testing.T, answers string, store storage.ResultsStore, pub Publisher) (*AccountingService, *bytes.Buffer) {
	t.Helper()
	return newServiceWithRate(t, answers, store, pub, nil)
}

func newServiceWithRate(t *testing.T, answers string, store storage.ResultsStore, pub Publisher, rate aggregate.ExchangeRateProvider) (*AccountingService, *bytes.Buffer) {
	t.Helper()
	logger := log.Discard()

	classifier, err := classify.Compile([]classify.Definition{
		{Name: "subscriptions", Patterns: []string{"netflix", "spotify"}},
		{Name: "housing", Patterns: []string{"^husleie"}},
		{Name: "food", Patterns: []string{"^meny"}},
		{Name: core.InvestmentsCategory, Patterns: []string{"fondskjøp"}},
	}, []string{"overføring"}, logger)
	require.NoError(t, err)

	var out bytes.Buffer
	console := prompt.New(strings.NewReader(answers), &out, "> ")

	deps := Dependencies{
		Classifier: classifier,
		Resolver:   resolve.NewResolver(console, logger),
		Aggregator: aggregate.New(nil, rate, nil, aggregate.Options{
			SkipPatterns: classifier.Skip(),
			Holdings:     dec("2"),
		}, logger),
		Store: store,
	}
	if pub != nil {
		deps.Publisher = pub
	}
	svc := NewAccountingService(deps, logger)
	svc.now = func() time.Time { return time.Date(2023, 4, 2, 12, 0, 0, 0, time.UTC) }
	return svc, &out
}

func TestProcessAssignsAndSkips(t *testing.T) {
	svc, _ := newService(t, "2\ns\n", nil, nil)

	rec, err := svc.Process(context.Background(), march())
	require.NoError(t, err)

	food, ok := rec.Categories.Get("food")
	require.True(t, ok)
	require.Len(t, food.Transactions, 1)
	assert.Equal(t, "Rema 1000 Grünerløkka", food.Transactions[0].Description)

	require.Len(t, rec.Categories.Remainder, 1)
	assert.Equal(t, "Kiwi Torshov", rec.Categories.Remainder[0].Description)

	assert.True(t, dec("9579").Equal(rec.Expense), "expense %s", rec.Expense)
	assert.True(t, dec("30000").Equal(rec.Income), "income %s", rec.Income)
	assert.True(t, aggregate.DefaultFallbackRate.Equal(rec.Snapshot.ExchangeRate))
	assert.Equal(t, "2023-03", rec.Period())
	assert.Len(t, rec.Runs, 1)
}

func TestProcessAbortAndClosedInputKeepAutomaticClassification(t *testing.T) {
	for name, answers := range map[string]string{
		"abort":        "2\na\n",
		"input closed": "",
	} {
		t.Run(name, func(t *testing.T) {
			svc, _ := newService(t, answers, nil, nil)

			rec, err := svc.Process(context.Background(), march())
			require.NoError(t, err)

			food, _ := rec.Categories.Get("food")
			assert.Empty(t, food.Transactions)
			assert.Len(t, rec.Categories.Remainder, 2)
			assert.True(t, dec("9129").Equal(rec.Expense), "expense %s", rec.Expense)
		})
	}
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	svc, _ := newService(t, "", nil, nil)

	_, err := svc.Process(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	mixed := append(march(), core.Transaction{
		BookingDate: core.NewDate(2023, 4, 1),
		Description: "April",
		Out:         dec("1"),
	})
	_, err = svc.Process(context.Background(), mixed)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestProcessAllMergesStatementsAndReusesCachedRate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream := mock_aggregate.NewMockExchangeRateProvider(ctrl)
	upstream.EXPECT().Rate(gomock.Any()).Return(dec("287.4"), nil).Times(1)
	rate := providers.NewCachedRate(upstream, cache.NewLRUCache[decimal.Decimal](1, time.Minute), "rate", log.Discard())

	svc, _ := newServiceWithRate(t, "2\ns\n", nil, nil, rate)
	rec, err := svc.ProcessAll(context.Background(), [][]core.Transaction{
		march(),
		{tx(30, "Netflix.com", "129", "0")},
	})
	require.NoError(t, err)

	assert.Len(t, rec.Runs, 2)
	assert.True(t, dec("9708").Equal(rec.Expense), "expense %s", rec.Expense)
	assert.True(t, dec("30000").Equal(rec.Income), "income %s", rec.Income)
	assert.True(t, dec("287.4").Equal(rec.Snapshot.ExchangeRate), "rate %s", rec.Snapshot.ExchangeRate)
	assert.Equal(t, core.NewDate(2023, 3, 30), rec.EndDate)
}

func TestProcessAllErrors(t *testing.T) {
	svc, _ := newService(t, "", nil, nil)

	_, err := svc.ProcessAll(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.ProcessAll(context.Background(), [][]core.Transaction{
		{tx(3, "Husleie mars", "9000", "0")},
		nil,
	})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorContains(t, err, "statement 2")
}

func TestImportMergesAndPublishes(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{}
	ctx := context.Background()

	svc, _ := newService(t, "2\ns\n", store, pub)
	first, err := svc.Process(ctx, march())
	require.NoError(t, err)
	_, err = svc.Import(ctx, "", first)
	require.NoError(t, err)

	svc2, _ := newService(t, "e\n", store, pub)
	second, err := svc2.Process(ctx, []core.Transaction{tx(30, "Netflix.com", "129", "0")})
	require.NoError(t, err)
	merged, err := svc2.Import(ctx, "", second)
	require.NoError(t, err)

	assert.Len(t, merged.Runs, 2)
	assert.True(t, dec("9708").Equal(merged.Expense), "expense %s", merged.Expense)
	assert.Equal(t, core.NewDate(2023, 3, 3), merged.StartDate)
	assert.Equal(t, core.NewDate(2023, 3, 30), merged.EndDate)
	assert.Equal(t, []string{"2023-03", "2023-03"}, pub.periods)

	loaded, err := svc.Load(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, merged.Runs, loaded.Runs)

	periods, err := svc.Periods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-03"}, periods)
}

func TestSaveReplacesAndIgnoresPublishFailure(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{err: errors.New("connection refused")}
	ctx := context.Background()

	svc, _ := newService(t, "2\ns\n", store, pub)
	rec, err := svc.Process(ctx, march())
	require.NoError(t, err)

	_, err = svc.Save(ctx, "2023-03", rec)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "2023-03", rec)
	require.NoError(t, err)

	loaded, err := svc.Load(ctx, "2023-03")
	require.NoError(t, err)
	assert.Equal(t, rec.Runs, loaded.Runs, "save overwrites")
	assert.Len(t, pub.periods, 2)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, "", nil, nil)

	_, err := svc.Save(ctx, "", core.ResultsRecord{})
	assert.EqualError(t, err, "no results store configured")
	_, err = svc.Load(ctx, "")
	assert.EqualError(t, err, "no results store configured")

	svc, _ = newService(t, "", memory.New(), nil)
	_, err = svc.Save(ctx, "March", core.ResultsRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidPeriod)
	_, err = svc.Load(ctx, "2023-13")
	assert.ErrorIs(t, err, storage.ErrInvalidPeriod)
	_, err = svc.Load(ctx, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
