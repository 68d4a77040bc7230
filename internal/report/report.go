package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// DefaultTopN is the ranking size used when the caller does not ask for one
const DefaultTopN = 10

// Aggregator computes reports from the store. It holds no state of its own
// and is safe for concurrent use.
type Aggregator struct {
	store storage.Storage
	log   *zap.Logger
	now   func() time.Time
}

// New creates an aggregator reading from the given store
func New(store storage.Storage, log *zap.Logger) *Aggregator {
	return NewWithClock(store, log, time.Now)
}

// NewWithClock creates an aggregator with an injectable clock, used by the
// dashboard to decide what "today" means
func NewWithClock(store storage.Storage, log *zap.Logger, now func() time.Time) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{store: store, log: log, now: now}
}

// bounds converts an inclusive date range into the half-open window the
// storage queries expect
func bounds(p types.Period) (time.Time, time.Time) {
	return startOfDay(p.From), startOfDay(p.To).AddDate(0, 0, 1)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// percentage returns part over whole as a percent, 0 when the whole is 0
func percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	pct, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// growth returns the percent change from previous to current, 0 when the
// previous value is 0
func growth(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	pct, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// Totals returns the headline numbers for a period
func (a *Aggregator) Totals(ctx context.Context, period types.Period) (types.PeriodTotals, error) {
	from, toExcl := bounds(period)
	return a.store.PeriodTotals(ctx, from, toExcl)
}

// Series returns the time-bucketed sales series for a period, buckets
// ascending
func (a *Aggregator) Series(ctx context.Context, period types.Period, bucket types.Bucket) ([]types.SeriesPoint, error) {
	from, toExcl := bounds(period)
	return a.store.SalesSeries(ctx, from, toExcl, bucket)
}

// TopProducts ranks products by revenue within the period and fills in each
// row's share of the ranked set
func (a *Aggregator) TopProducts(ctx context.Context, period types.Period, limit int) ([]types.ProductRank, error) {
	if limit <= 0 {
		limit = DefaultTopN
	}
	from, toExcl := bounds(period)
	ranks, err := a.store.TopProducts(ctx, from, toExcl, limit)
	if err != nil {
		return nil, err
	}
	fillProductShares(ranks)
	return ranks, nil
}

func fillProductShares(ranks []types.ProductRank) {
	totalRevenue := decimal.Zero
	totalUnits := int64(0)
	for _, rank := range ranks {
		totalRevenue = totalRevenue.Add(rank.Revenue)
		totalUnits += int64(rank.UnitsSold)
	}
	for i := range ranks {
		ranks[i].RevenuePct = percentage(ranks[i].Revenue, totalRevenue)
		ranks[i].UnitsPct = percentage(decimal.NewFromInt(int64(ranks[i].UnitsSold)), decimal.NewFromInt(totalUnits))
	}
}

// SellerRanking ranks sellers by revenue within the period
func (a *Aggregator) SellerRanking(ctx context.Context, period types.Period, limit int) ([]types.SellerRank, error) {
	if limit <= 0 {
		limit = DefaultTopN
	}
	from, toExcl := bounds(period)
	ranks, err := a.store.SellerTotals(ctx, from, toExcl, limit)
	if err != nil {
		return nil, err
	}
	totalRevenue := decimal.Zero
	for _, rank := range ranks {
		totalRevenue = totalRevenue.Add(rank.Revenue)
	}
	for i := range ranks {
		ranks[i].RevenuePct = percentage(ranks[i].Revenue, totalRevenue)
	}
	return ranks, nil
}

// SalesByCategory breaks the period's revenue down by product category and
// fills in each category's share of the breakdown
func (a *Aggregator) SalesByCategory(ctx context.Context, period types.Period) ([]types.CategoryRank, error) {
	from, toExcl := bounds(period)
	ranks, err := a.store.SalesByCategory(ctx, from, toExcl)
	if err != nil {
		return nil, err
	}
	totalRevenue := decimal.Zero
	for _, rank := range ranks {
		totalRevenue = totalRevenue.Add(rank.Revenue)
	}
	for i := range ranks {
		ranks[i].RevenuePct = percentage(ranks[i].Revenue, totalRevenue)
	}
	return ranks, nil
}

// SalesReport builds the consolidated report for a period: totals, growth
// against the preceding period of equal length, the bucketed series, the
// top products, and the category breakdown. The independent queries are
// fanned out concurrently.
func (a *Aggregator) SalesReport(ctx context.Context, period types.Period, bucket types.Bucket, topN int) (*types.SalesReport, error) {
	if bucket == "" {
		bucket = types.BucketDay
	}
	report := &types.SalesReport{Period: period}
	var previous types.PeriodTotals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := a.Totals(gctx, period)
		if err != nil {
			return fmt.Errorf("period totals: %w", err)
		}
		report.Totals = totals
		return nil
	})
	g.Go(func() error {
		totals, err := a.Totals(gctx, period.Previous())
		if err != nil {
			return fmt.Errorf("previous period totals: %w", err)
		}
		previous = totals
		return nil
	})
	g.Go(func() error {
		series, err := a.Series(gctx, period, bucket)
		if err != nil {
			return fmt.Errorf("sales series: %w", err)
		}
		report.Series = series
		return nil
	})
	g.Go(func() error {
		ranks, err := a.TopProducts(gctx, period, topN)
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		report.TopProducts = ranks
		return nil
	})
	g.Go(func() error {
		ranks, err := a.SalesByCategory(gctx, period)
		if err != nil {
			return fmt.Errorf("sales by category: %w", err)
		}
		report.ByCategory = ranks
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.CountGrowth = growth(decimal.NewFromInt(int64(report.Totals.Count)), decimal.NewFromInt(int64(previous.Count)))
	report.AmountGrowth = growth(report.Totals.Amount, previous.Amount)

	a.log.Debug("sales report generated",
		zap.Time("from", period.From),
		zap.Time("to", period.To),
		zap.Int("sales", report.Totals.Count))
	return report, nil
}

// LowStockSummary lists depleted products with the inventory value tied up
// in them
type LowStockSummary struct {
	Items      []types.LowStockItem
	TotalValue decimal.Decimal
}

// LowStock reports active products at or below their restock threshold, most
// depleted first. A non-nil threshold overrides each product's own minimum.
func (a *Aggregator) LowStock(ctx context.Context, threshold *int) (*LowStockSummary, error) {
	products, err := a.store.LowStockProducts(ctx, threshold)
	if err != nil {
		return nil, err
	}

	summary := &LowStockSummary{Items: make([]types.LowStockItem, 0, len(products)), TotalValue: decimal.Zero}
	for _, product := range products {
		state := types.StockStateCritical
		if product.Stock == 0 {
			state = types.StockStateOut
		}
		value := product.InventoryValue()
		summary.Items = append(summary.Items, types.LowStockItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Category:       product.Category,
			Stock:          product.Stock,
			StockMinimum:   product.StockMinimum,
			Price:          product.Price,
			InventoryValue: value,
			State:          state,
		})
		summary.TotalValue = summary.TotalValue.Add(value)
	}
	return summary, nil
}

// Dashboard returns today's headline metrics, fanned out concurrently
func (a *Aggregator) Dashboard(ctx context.Context) (*types.Dashboard, error) {
	now := a.now()
	from := startOfDay(now)
	toExcl := from.AddDate(0, 0, 1)

	dash := &types.Dashboard{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := a.store.PeriodTotals(gctx, from, toExcl)
		if err != nil {
			return fmt.Errorf("today's totals: %w", err)
		}
		dash.SalesToday = totals.Count
		dash.AmountToday = totals.Amount
		return nil
	})
	g.Go(func() error {
		count, err := a.store.CountActiveProducts(gctx)
		if err != nil {
			return fmt.Errorf("active product count: %w", err)
		}
		dash.ActiveProducts = count
		return nil
	})
	g.Go(func() error {
		count, err := a.store.CountLowStock(gctx)
		if err != nil {
			return fmt.Errorf("low stock count: %w", err)
		}
		dash.LowStockCount = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

// SalesListing returns the sales matching the filter together with the
// statistics of the same filtered set. Filter dates are interpreted as
// inclusive calendar days.
func (a *Aggregator) SalesListing(ctx context.Context, filter types.SaleFilter) ([]*types.Sale, types.PeriodTotals, error) {
	if filter.From != nil {
		from := startOfDay(*filter.From)
		filter.From = &from
	}
	if filter.To != nil {
		toExcl := startOfDay(*filter.To).AddDate(0, 0, 1)
		filter.To = &toExcl
	}

	sales, err := a.store.ListSales(ctx, filter)
	if err != nil {
		return nil, types.PeriodTotals{}, err
	}
	stats, err := a.store.SaleStats(ctx, filter)
	if err != nil {
		return nil, types.PeriodTotals{}, err
	}
	return sales, stats, nil
}
