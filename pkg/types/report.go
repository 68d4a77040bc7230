package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket granularity for time-bucketed sales series
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// Period is an inclusive date range over which aggregates are computed
type Period struct {
	From time.Time
	To   time.Time
}

// Days returns the number of calendar days the period spans, inclusive
func (p Period) Days() int {
	return int(p.To.Sub(p.From).Hours()/24) + 1
}

// Previous returns the immediately preceding period of equal length
func (p Period) Previous() Period {
	days := p.Days()
	return Period{
		From: p.From.AddDate(0, 0, -days),
		To:   p.From.AddDate(0, 0, -1),
	}
}

// PeriodTotals are the headline numbers for a reporting window,
// restricted to completed sales
type PeriodTotals struct {
	Count   int
	Amount  decimal.Decimal
	Average decimal.Decimal
}

// SeriesPoint is one bucket of a time-bucketed sales series
type SeriesPoint struct {
	Period string // Bucket label, e.g. "2025-01-15"
	Count  int
	Amount decimal.Decimal
}

// ProductRank is one row of a top-products ranking
type ProductRank struct {
	ProductID    int64
	Name         string
	UnitsSold    int
	TimesSold    int // Distinct sales the product appeared in
	Revenue      decimal.Decimal
	AvgUnitPrice decimal.Decimal
	RevenuePct   float64 // Share of the ranked set's revenue; 0 when total is 0
	UnitsPct     float64
}

// CategoryRank is one row of a sales-by-category breakdown
type CategoryRank struct {
	Category   string
	UnitsSold  int
	Revenue    decimal.Decimal
	RevenuePct float64
}

// SellerRank is one row of a seller performance ranking
type SellerRank struct {
	SellerID   int64
	SellerName string
	SaleCount  int
	Revenue    decimal.Decimal
	RevenuePct float64
}

// SalesReport is the consolidated report for a period: totals, growth
// against the immediately preceding period of equal length, the bucketed
// series, the top products, and the category breakdown
type SalesReport struct {
	Period       Period
	Totals       PeriodTotals
	CountGrowth  float64 // Percent vs previous period; 0 when previous is 0
	AmountGrowth float64
	Series       []SeriesPoint
	TopProducts  []ProductRank
	ByCategory   []CategoryRank
}

// LowStockState classifies how depleted a low-stock product is
type LowStockState string

const (
	StockStateOut      LowStockState = "out_of_stock"
	StockStateCritical LowStockState = "critical"
)

// LowStockItem is one product at or below its restock threshold
type LowStockItem struct {
	ProductID      int64
	Name           string
	Category       string
	Stock          int
	StockMinimum   int
	Price          decimal.Decimal
	InventoryValue decimal.Decimal
	State          LowStockState
}

// Dashboard carries the headline metrics for the current day
type Dashboard struct {
	SalesToday     int
	AmountToday    decimal.Decimal
	ActiveProducts int
	LowStockCount  int
	GeneratedAt    time.Time
}

// SaleFilter narrows a sales listing
type SaleFilter struct {
	From     *time.Time
	To       *time.Time
	Customer string // Substring match on customer name
	Status   SaleStatus
	SellerID *int64
	OrderBy  string // One of: created_at, total, customer_name, status
	Desc     bool
	Limit    int
	Offset   int
}
