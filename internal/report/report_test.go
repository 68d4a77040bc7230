package report

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

var invoiceSeq atomic.Int64

func setupAggregator(t *testing.T) (*Aggregator, *storage.SQLiteStorage) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := func() time.Time {
		return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	}
	return NewWithClock(store, nil, clock), store
}

func seedSeller(t *testing.T, store *storage.SQLiteStorage, username string) *types.User {
	user := &types.User{Username: username, Name: "Seller " + username, PasswordHash: "x", Role: types.RoleClerk, Active: true}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, store *storage.SQLiteStorage, sku, price string, stock, minimum int) *types.Product {
	product := &types.Product{
		Name:         "Product " + sku,
		SKU:          sku,
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		StockMinimum: minimum,
		Active:       true,
	}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	return product
}

func seedSale(t *testing.T, store *storage.SQLiteStorage, sellerID int64, total string, status types.SaleStatus, createdAt time.Time) *types.Sale {
	sale := &types.Sale{
		CustomerName:  "Customer",
		Total:         decimal.RequireFromString(total),
		Status:        status,
		InvoiceNumber: fmt.Sprintf("FAC-2025-%06d", invoiceSeq.Add(1)),
		SellerID:      sellerID,
		CreatedAt:     createdAt,
	}
	require.NoError(t, store.CreateSale(context.Background(), sale))
	return sale
}

func day(d int) time.Time {
	return time.Date(2025, time.June, d, 10, 0, 0, 0, time.UTC)
}

func TestTotals(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "20.00", types.SaleCompleted, day(11))
	seedSale(t, store, seller.ID, "30.00", types.SaleCompleted, day(12))
	seedSale(t, store, seller.ID, "99.00", types.SaleCancelled, day(11))
	seedSale(t, store, seller.ID, "50.00", types.SaleCompleted, day(20))

	totals, err := agg.Totals(context.Background(), types.Period{From: day(10), To: day(12)})
	require.NoError(t, err)

	assert.Equal(t, 3, totals.Count)
	assert.True(t, totals.Amount.Equal(decimal.RequireFromString("60.00")), "amount %s", totals.Amount)
	assert.True(t, totals.Average.Equal(decimal.RequireFromString("20.00")), "average %s", totals.Average)
}

func TestTotals_EmptyPeriod(t *testing.T) {
	agg, _ := setupAggregator(t)

	totals, err := agg.Totals(context.Background(), types.Period{From: day(1), To: day(5)})
	require.NoError(t, err)

	assert.Equal(t, 0, totals.Count)
	assert.True(t, totals.Amount.IsZero())
	assert.True(t, totals.Average.IsZero())
}

func TestSeries_DayBuckets(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "15.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "20.00", types.SaleCompleted, day(12))

	series, err := agg.Series(context.Background(), types.Period{From: day(10), To: day(12)}, types.BucketDay)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "2025-06-10", series[0].Period)
	assert.Equal(t, 2, series[0].Count)
	assert.True(t, series[0].Amount.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, "2025-06-12", series[1].Period)
	assert.Equal(t, 1, series[1].Count)
}

func TestTopProducts_Shares(t *testing.T) {
	agg, store := setupAggregator(t)
	ctx := context.Background()
	seller := seedSeller(t, store, "s1")

	p1 := seedProduct(t, store, "P1", "30.00", 100, 2)
	p2 := seedProduct(t, store, "P2", "20.00", 100, 2)

	sale := seedSale(t, store, seller.ID, "100.00", types.SaleCompleted, day(10))
	require.NoError(t, store.InsertSaleLines(ctx, sale.ID, []types.SaleLine{
		{ProductID: p1.ID, Quantity: 2, UnitPrice: p1.Price, Subtotal: decimal.RequireFromString("60.00")},
		{ProductID: p2.ID, Quantity: 2, UnitPrice: p2.Price, Subtotal: decimal.RequireFromString("40.00")},
	}))

	ranks, err := agg.TopProducts(ctx, types.Period{From: day(10), To: day(10)}, 10)
	require.NoError(t, err)

	require.Len(t, ranks, 2)
	assert.Equal(t, p1.ID, ranks[0].ProductID)
	assert.InDelta(t, 60.0, ranks[0].RevenuePct, 0.01)
	assert.InDelta(t, 50.0, ranks[0].UnitsPct, 0.01)
	assert.Equal(t, 1, ranks[0].TimesSold)
	assert.Equal(t, p2.ID, ranks[1].ProductID)
	assert.InDelta(t, 40.0, ranks[1].RevenuePct, 0.01)
}

func TestTopProducts_EmptyPeriod(t *testing.T) {
	agg, _ := setupAggregator(t)

	ranks, err := agg.TopProducts(context.Background(), types.Period{From: day(1), To: day(5)}, 10)
	require.NoError(t, err)
	assert.Empty(t, ranks)
}

func TestPercentage_ZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, percentage(decimal.RequireFromString("10"), decimal.Zero))
	assert.InDelta(t, 25.0, percentage(decimal.RequireFromString("1"), decimal.RequireFromString("4")), 0.001)
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, 0.0, growth(decimal.RequireFromString("100"), decimal.Zero))
	assert.InDelta(t, 100.0, growth(decimal.RequireFromString("100"), decimal.RequireFromString("50")), 0.001)
	assert.InDelta(t, -50.0, growth(decimal.RequireFromString("25"), decimal.RequireFromString("50")), 0.001)
}

func TestSellerRanking(t *testing.T) {
	agg, store := setupAggregator(t)
	s1 := seedSeller(t, store, "s1")
	s2 := seedSeller(t, store, "s2")

	seedSale(t, store, s1.ID, "70.00", types.SaleCompleted, day(10))
	seedSale(t, store, s1.ID, "5.00", types.SaleCompleted, day(10))
	seedSale(t, store, s2.ID, "25.00", types.SaleCompleted, day(10))

	ranks, err := agg.SellerRanking(context.Background(), types.Period{From: day(10), To: day(10)}, 10)
	require.NoError(t, err)

	require.Len(t, ranks, 2)
	assert.Equal(t, s1.ID, ranks[0].SellerID)
	assert.Equal(t, 2, ranks[0].SaleCount)
	assert.InDelta(t, 75.0, ranks[0].RevenuePct, 0.01)
	assert.Equal(t, s2.ID, ranks[1].SellerID)
	assert.InDelta(t, 25.0, ranks[1].RevenuePct, 0.01)
}

func TestSalesByCategory(t *testing.T) {
	agg, store := setupAggregator(t)
	ctx := context.Background()
	seller := seedSeller(t, store, "s1")

	drinks := seedProduct(t, store, "D1", "10.00", 100, 2)
	drinks.Category = "drinks"
	require.NoError(t, store.UpdateProduct(ctx, drinks))
	snacks := seedProduct(t, store, "S1", "5.00", 100, 2)
	snacks.Category = "snacks"
	require.NoError(t, store.UpdateProduct(ctx, snacks))
	loose := seedProduct(t, store, "L1", "2.00", 100, 2)

	sale := seedSale(t, store, seller.ID, "100.00", types.SaleCompleted, day(10))
	require.NoError(t, store.InsertSaleLines(ctx, sale.ID, []types.SaleLine{
		{ProductID: drinks.ID, Quantity: 6, UnitPrice: drinks.Price, Subtotal: decimal.RequireFromString("60.00")},
		{ProductID: snacks.ID, Quantity: 6, UnitPrice: snacks.Price, Subtotal: decimal.RequireFromString("30.00")},
		{ProductID: loose.ID, Quantity: 5, UnitPrice: loose.Price, Subtotal: decimal.RequireFromString("10.00")},
	}))

	ranks, err := agg.SalesByCategory(ctx, types.Period{From: day(10), To: day(10)})
	require.NoError(t, err)

	require.Len(t, ranks, 3)
	assert.Equal(t, "drinks", ranks[0].Category)
	assert.Equal(t, 6, ranks[0].UnitsSold)
	assert.True(t, ranks[0].Revenue.Equal(decimal.RequireFromString("60.00")))
	assert.InDelta(t, 60.0, ranks[0].RevenuePct, 0.01)
	assert.Equal(t, "snacks", ranks[1].Category)
	assert.InDelta(t, 30.0, ranks[1].RevenuePct, 0.01)
	assert.Equal(t, "uncategorized", ranks[2].Category)
	assert.InDelta(t, 10.0, ranks[2].RevenuePct, 0.01)
}

func TestSalesReport_Growth(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	// Previous window (June 1-5): 50.00 in one sale
	seedSale(t, store, seller.ID, "50.00", types.SaleCompleted, day(3))
	// Current window (June 6-10): 100.00 in two sales
	seedSale(t, store, seller.ID, "60.00", types.SaleCompleted, day(7))
	seedSale(t, store, seller.ID, "40.00", types.SaleCompleted, day(9))

	report, err := agg.SalesReport(context.Background(), types.Period{From: day(6), To: day(10)}, types.BucketDay, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Totals.Count)
	assert.True(t, report.Totals.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.InDelta(t, 100.0, report.CountGrowth, 0.01)
	assert.InDelta(t, 100.0, report.AmountGrowth, 0.01)
	assert.Len(t, report.Series, 2)
}

func TestSalesReport_NoPriorPeriod(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))

	report, err := agg.SalesReport(context.Background(), types.Period{From: day(10), To: day(10)}, types.BucketDay, 5)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.CountGrowth)
	assert.Equal(t, 0.0, report.AmountGrowth)
}

func TestLowStock(t *testing.T) {
	agg, store := setupAggregator(t)

	seedProduct(t, store, "OUT", "10.00", 0, 5)
	seedProduct(t, store, "CRIT", "20.00", 2, 5)
	seedProduct(t, store, "FINE", "30.00", 50, 5)

	summary, err := agg.LowStock(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 2)
	assert.Equal(t, "Product OUT", summary.Items[0].Name)
	assert.Equal(t, types.StockStateOut, summary.Items[0].State)
	assert.Equal(t, "Product CRIT", summary.Items[1].Name)
	assert.Equal(t, types.StockStateCritical, summary.Items[1].State)
	assert.True(t, summary.Items[1].InventoryValue.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, summary.TotalValue.Equal(decimal.RequireFromString("40.00")))
}

func TestLowStock_ExplicitThreshold(t *testing.T) {
	agg, store := setupAggregator(t)

	seedProduct(t, store, "A", "10.00", 3, 2)
	seedProduct(t, store, "B", "10.00", 8, 2)

	threshold := 5
	summary, err := agg.LowStock(context.Background(), &threshold)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "Product A", summary.Items[0].Name)
}

func TestDashboard(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	// Clock is pinned to June 15; one sale today, one yesterday
	seedSale(t, store, seller.ID, "42.00", types.SaleCompleted, day(15))
	seedSale(t, store, seller.ID, "99.00", types.SaleCompleted, day(14))
	seedProduct(t, store, "LOW", "10.00", 1, 5)
	seedProduct(t, store, "OK", "10.00", 20, 5)

	dash, err := agg.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, dash.SalesToday)
	assert.True(t, dash.AmountToday.Equal(decimal.RequireFromString("42.00")))
	assert.Equal(t, 2, dash.ActiveProducts)
	assert.Equal(t, 1, dash.LowStockCount)
}

func TestSalesListing(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "20.00", types.SaleCompleted, day(11))

	from := day(10)
	to := day(11)
	sales, stats, err := agg.SalesListing(context.Background(), types.SaleFilter{From: &from, To: &to})
	require.NoError(t, err)

	assert.Len(t, sales, 2)
	assert.Equal(t, 2, stats.Count)
	assert.True(t, stats.Amount.Equal(decimal.RequireFromString("30.00")))
}

func TestSalesListing_StatsMatchFilters(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "20.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "99.00", types.SaleCancelled, day(10))

	// A customer filter matching nothing must zero the statistics too
	sales, stats, err := agg.SalesListing(context.Background(), types.SaleFilter{Customer: "NoSuchCustomer"})
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 0, stats.Count)
	assert.True(t, stats.Amount.IsZero())

	// A status filter narrows the statistics to the same rows
	sales, stats, err = agg.SalesListing(context.Background(), types.SaleFilter{Status: types.SaleCancelled})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 1, stats.Count)
	assert.True(t, stats.Amount.Equal(decimal.RequireFromString("99.00")))
}

func TestSalesListing_StatsIgnorePaging(t *testing.T) {
	agg, store := setupAggregator(t)
	seller := seedSeller(t, store, "s1")

	seedSale(t, store, seller.ID, "10.00", types.SaleCompleted, day(10))
	seedSale(t, store, seller.ID, "20.00", types.SaleCompleted, day(11))
	seedSale(t, store, seller.ID, "30.00", types.SaleCompleted, day(12))

	sales, stats, err := agg.SalesListing(context.Background(), types.SaleFilter{Limit: 1})
	require.NoError(t, err)

	assert.Len(t, sales, 1)
	assert.Equal(t, 3, stats.Count)
	assert.True(t, stats.Amount.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, stats.Average.Equal(decimal.RequireFromString("20.00")))
}
