package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

var today = ledger.NewDate(2024, time.June, 30)

func product(sku string, threshold int) ledger.Product {
	return ledger.Product{SKU: sku, Name: "Product " + sku, Brand: "Acme", Supplier: "Acme Ltd", UnitsPerBox: 1, RepurchaseThreshold: threshold}
}

func TestSuggestionAccountsForCumulativeExits(t *testing.T) {
	require.Equal(t, 35, Suggestion(20, 30, 15))
	require.Equal(t, 0, Suggestion(5, 0, 50))
}

func TestClassifyRepurchase(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("A1", 20)},
		Locations: []ledger.Location{
			{SKU: "A1", Place: "Shelf-1", Volume: 3, UnitsPerBox: 5, Date: today},
		},
		Exits: []ledger.Exit{
			{SKU: "A1", Quantity: 10, Date: today.AddDays(-3), Type: ledger.ExitExpedicao},
			{SKU: "a1", Quantity: 20, Date: today.AddDays(-2), Type: ledger.ExitFull, Store: ledger.StoreShopee},
		},
	}
	report := NewEngine(0).Classify(snap, today)

	require.Len(t, report.Repurchase, 1)
	item := report.Repurchase[0]
	require.Equal(t, StatusRepurchase, item.Status)
	require.Equal(t, 15, item.Quantity)
	require.Equal(t, 30, item.TotalExits)
	require.Equal(t, 35, item.Suggestion)
	require.Equal(t, Counts{Repurchase: 1}, report.Counts)
}

func TestClassifyStagnant(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("B2", 0)},
		Locations: []ledger.Location{
			{SKU: "B2", Place: "Shelf-9", Volume: 5, UnitsPerBox: 1, Date: today.AddDays(-45)},
		},
	}
	report := NewEngine(30).Classify(snap, today)

	require.Len(t, report.Stagnant, 1)
	require.Equal(t, 45, report.Stagnant[0].DaysSinceLastMovement)
	require.Equal(t, StatusStagnant, report.Stagnant[0].Status)
	require.Empty(t, report.Repurchase)
}

func TestClassifyUsesLatestOfLocationAndExitDates(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("C3", 0)},
		Locations: []ledger.Location{
			{SKU: "C3", Place: "Shelf-2", Volume: 1, UnitsPerBox: 10, Date: today.AddDays(-90)},
		},
		Exits: []ledger.Exit{
			{SKU: "C3", Quantity: 4, Date: today.AddDays(-10), Type: ledger.ExitExpedicao},
		},
	}
	report := NewEngine(30).Classify(snap, today)
	require.Equal(t, Counts{OK: 1}, report.Counts)
	require.Equal(t, 10, report.Items[0].DaysSinceLastMovement)
	require.Equal(t, today.AddDays(-10), report.Items[0].LastMovement)
}

func TestClassifyBoundaryAtThirtyDays(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("D4", 0), product("D5", 0)},
		Locations: []ledger.Location{
			{SKU: "D4", Place: "A", Volume: 1, UnitsPerBox: 1, Date: today.AddDays(-30)},
			{SKU: "D5", Place: "B", Volume: 1, UnitsPerBox: 1, Date: today.AddDays(-31)},
		},
	}
	report := NewEngine(30).Classify(snap, today)
	require.Equal(t, Counts{OK: 1, Stagnant: 1}, report.Counts)
	require.Equal(t, "D5", report.Stagnant[0].SKU)
}

func TestClassifyEmptyStockIsNeverStagnant(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("E5", 0)},
		Exits: []ledger.Exit{
			{SKU: "E5", Quantity: 3, Date: today.AddDays(-200), Type: ledger.ExitExpedicao},
		},
	}
	report := NewEngine(30).Classify(snap, today)
	require.Equal(t, Counts{OK: 1}, report.Counts)
}

func TestClassificationIsExclusive(t *testing.T) {
	// low stock and idle: repurchase wins
	snap := ledger.Snapshot{
		Products: []ledger.Product{product("F6", 10), product("G7", 0), product("H8", 2)},
		Locations: []ledger.Location{
			{SKU: "F6", Place: "A", Volume: 1, UnitsPerBox: 5, Date: today.AddDays(-120)},
			{SKU: "G7", Place: "B", Volume: 2, UnitsPerBox: 5, Date: today.AddDays(-120)},
			{SKU: "H8", Place: "C", Volume: 2, UnitsPerBox: 5, Date: today},
		},
	}
	report := NewEngine(30).Classify(snap, today)
	require.Len(t, report.Items, 3)
	require.Equal(t, len(report.Items), report.Counts.OK+report.Counts.Repurchase+report.Counts.Stagnant)

	seen := map[string]int{}
	for _, item := range report.Repurchase {
		seen[item.SKU]++
	}
	for _, item := range report.Stagnant {
		seen[item.SKU]++
	}
	for sku, n := range seen {
		require.Equal(t, 1, n, "sku %s classified twice", sku)
	}
	require.Equal(t, StatusRepurchase, report.Items[0].Status)
	require.Equal(t, StatusStagnant, report.Items[1].Status)
	require.Equal(t, StatusOK, report.Items[2].Status)
}

func TestTotalExitQuantityAndLastMovement(t *testing.T) {
	exits := []ledger.Exit{
		{SKU: "A1", Quantity: 5, Date: today.AddDays(-5)},
		{SKU: "A1", Quantity: 7, Date: today.AddDays(-1)},
		{SKU: "Z9", Quantity: 100, Date: today},
	}
	require.Equal(t, 12, TotalExitQuantity("a1", exits))

	last, ok := LastMovement("A1", nil, exits)
	require.True(t, ok)
	require.Equal(t, today.AddDays(-1), last)

	_, ok = LastMovement("nope", nil, exits)
	require.False(t, ok)
}

func TestSummarizeExits(t *testing.T) {
	exits := []ledger.Exit{
		{SKU: "A1", Quantity: 10, Type: ledger.ExitExpedicao},
		{SKU: "A1", Quantity: 4, Type: ledger.ExitFull, Store: ledger.StoreAmazon},
		{SKU: "B2", Quantity: 6, Type: ledger.ExitFull, Store: ledger.StoreShein},
		{SKU: "B2", Quantity: 1, Type: ledger.ExitFull, Store: ledger.StoreAmazon},
	}
	summary := SummarizeExits(exits, []ledger.Store{ledger.StoreAmazon, ledger.StoreShopee})
	require.Equal(t, 10, summary.Expedicao)
	require.Equal(t, 11, summary.Full)
	require.Equal(t, []StoreTotal{
		{Store: ledger.StoreAmazon, Quantity: 5},
		{Store: ledger.StoreShopee, Quantity: 0},
	}, summary.Stores)
}
