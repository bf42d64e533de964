package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestStockCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := &Stock{ISIN: "DE0007164600", Symbol: ptr("SAP"), Name: "SAP SE"}
	require.NoError(t, s.CreateStock(ctx, st))
	assert.Equal(t, "EUR", st.Currency)

	got, err := s.GetStock(ctx, "DE0007164600")
	require.NoError(t, err)
	assert.Equal(t, "SAP SE", got.Name)
	require.NotNil(t, got.Symbol)
	assert.Equal(t, "SAP", *got.Symbol)

	got.Name = "SAP SE (Xetra)"
	require.NoError(t, s.UpdateStock(ctx, got))

	list, err := s.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "SAP SE (Xetra)", list[0].Name)

	require.NoError(t, s.DeleteStock(ctx, "DE0007164600"))
	_, err = s.GetStock(ctx, "DE0007164600")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStockDuplicateISINRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "US0378331005", Name: "Apple Inc."}))
	err := s.CreateStock(ctx, &Stock{ISIN: "US0378331005", Name: "Apple again"})
	assert.Error(t, err)
}

func TestHoldingLifecycleAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "DE0007164600", Name: "SAP SE"}))
	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "US0378331005", Name: "Apple Inc."}))

	h1 := &Holding{ISIN: "DE0007164600", Quantity: 10, AvgPrice: ptr(120.0)}
	require.NoError(t, s.CreateHolding(ctx, h1))
	assert.Equal(t, 99, h1.Category)

	// unpriced position, excluded from the value sum
	require.NoError(t, s.CreateHolding(ctx, &Holding{ISIN: "US0378331005", Quantity: 5}))

	require.NoError(t, s.CreateAlarm(ctx, &Alarm{ISIN: "DE0007164600", ThresholdHigh: ptr(150.0), IsActive: true}))
	require.NoError(t, s.CreateAlarm(ctx, &Alarm{ISIN: "DE0007164600", ThresholdLow: ptr(90.0), IsActive: false}))
	require.NoError(t, s.CreateRecommendation(ctx, &Recommendation{ISIN: "US0378331005", Source: "Analystenhaus", Action: "buy"}))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStocks)
	assert.Equal(t, 1, stats.TotalAlarms) // only active alarms count
	assert.Equal(t, 1, stats.TotalRecommendations)
	assert.InDelta(t, 1200.0, stats.TotalHoldingsValue, 0.001)

	h1.Quantity = 20
	require.NoError(t, s.UpdateHolding(ctx, h1))
	stats, err = s.GetStats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2400.0, stats.TotalHoldingsValue, 0.001)

	require.NoError(t, s.DeleteHolding(ctx, h1.ID))
	holdings, err := s.ListHoldings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "US0378331005", holdings[0].ISIN)
}

func TestHoldingUniquePerStock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "DE0007164600", Name: "SAP SE"}))
	require.NoError(t, s.CreateHolding(ctx, &Holding{ISIN: "DE0007164600", Quantity: 1}))
	err := s.CreateHolding(ctx, &Holding{ISIN: "DE0007164600", Quantity: 2})
	assert.Error(t, err)
}

func TestRecommendationDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "DE0007164600", Name: "SAP SE"}))
	r := &Recommendation{ISIN: "DE0007164600", Source: "Bank"}
	require.NoError(t, s.CreateRecommendation(ctx, r))
	assert.Equal(t, "hold", r.Action)
	assert.Equal(t, 3, r.Confidence)
	assert.Equal(t, 99, r.Strategy)
}

func TestDeleteStockCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateStock(ctx, &Stock{ISIN: "DE0007164600", Name: "SAP SE"}))
	require.NoError(t, s.CreateHolding(ctx, &Holding{ISIN: "DE0007164600", Quantity: 3}))
	require.NoError(t, s.CreateAlarm(ctx, &Alarm{ISIN: "DE0007164600", IsActive: true}))

	require.NoError(t, s.DeleteStock(ctx, "DE0007164600"))

	holdings, err := s.ListHoldings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)
	alarms, err := s.ListAlarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestUpdateMissingRowReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.UpdateAlarm(ctx, &Alarm{ID: 12345})
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.DeleteRecommendation(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookmarkDirectoryOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	work := &Category{Name: "Work", Priority: 2}
	finance := &Category{Name: "Finance", Priority: 1}
	require.NoError(t, s.CreateCategory(ctx, work))
	require.NoError(t, s.CreateCategory(ctx, finance))

	require.NoError(t, s.CreatePage(ctx, &Page{CategoryID: finance.ID, Title: "Zinsen", URL: "https://example.com/zinsen"}))
	require.NoError(t, s.CreatePage(ctx, &Page{CategoryID: finance.ID, Title: "Aktienkurse", URL: "https://example.com/kurse"}))

	dir, err := s.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, dir, 2)
	assert.Equal(t, "Finance", dir[0].Category.Name) // lower priority first
	require.Len(t, dir[0].Pages, 2)
	assert.Equal(t, "Aktienkurse", dir[0].Pages[0].Title) // pages sorted by title
	assert.Empty(t, dir[1].Pages)
}

func TestMailboxConfigRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := &MailboxConfig{
		User:         "littlecapa@googlemail.com",
		SourceFolder: "Aktien",
		TargetFolder: "Archive_Aktien",
		SavePath:     "/data/finance",
	}
	require.NoError(t, s.CreateMailboxConfig(ctx, cfg))

	list, err := s.ListMailboxConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Aktien", list[0].SourceFolder)

	require.NoError(t, s.DeleteMailboxConfig(ctx, cfg.ID))
	list, err = s.ListMailboxConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
