package storage

import (
	"context"
	"time"

	"github.com/retailops/backoffice/pkg/types"
)

// Storage defines the interface for persisting and querying back-office data
type Storage interface {
	// Product operations
	CreateProduct(ctx context.Context, product *types.Product) error
	GetProduct(ctx context.Context, productID int64) (*types.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*types.Product, error)
	UpdateProduct(ctx context.Context, product *types.Product) error
	SetProductActive(ctx context.Context, productID int64, active bool) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error)

	// AdjustStock atomically adds delta to the product's stock. The update is
	// guarded so stock can never go negative: a negative delta that would
	// undershoot zero leaves the row untouched and returns ErrStockGuard.
	AdjustStock(ctx context.Context, productID int64, delta int) error

	// Sale operations
	CreateSale(ctx context.Context, sale *types.Sale) error
	InsertSaleLines(ctx context.Context, saleID int64, lines []types.SaleLine) error
	GetSale(ctx context.Context, saleID int64) (*types.Sale, error)
	ListSales(ctx context.Context, filter types.SaleFilter) ([]*types.Sale, error)
	UpdateSaleStatus(ctx context.Context, saleID int64, status types.SaleStatus) error

	// SaleStats computes count, sum, and average over the sales matching the
	// filter. The same conditions as ListSales apply; ordering and paging are
	// ignored so the statistics describe the whole filtered set.
	SaleStats(ctx context.Context, filter types.SaleFilter) (types.PeriodTotals, error)

	// NextInvoiceSeq atomically increments and returns the invoice sequence
	// for the given calendar year. The first call for a year returns 1.
	NextInvoiceSeq(ctx context.Context, year int) (int64, error)

	// Stock movement trail
	InsertStockMovement(ctx context.Context, movement *types.StockMovement) error
	ListStockMovements(ctx context.Context, productID int64, limit int) ([]*types.StockMovement, error)

	// User operations
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)

	// Reporting queries. All are restricted to completed sales and interpret
	// the range as [from, toExcl).
	PeriodTotals(ctx context.Context, from, toExcl time.Time) (types.PeriodTotals, error)
	SalesSeries(ctx context.Context, from, toExcl time.Time, bucket types.Bucket) ([]types.SeriesPoint, error)
	TopProducts(ctx context.Context, from, toExcl time.Time, limit int) ([]types.ProductRank, error)
	SellerTotals(ctx context.Context, from, toExcl time.Time, limit int) ([]types.SellerRank, error)
	SalesByCategory(ctx context.Context, from, toExcl time.Time) ([]types.CategoryRank, error)
	LowStockProducts(ctx context.Context, threshold *int) ([]*types.Product, error)
	CountActiveProducts(ctx context.Context) (int, error)
	CountLowStock(ctx context.Context) (int, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ProductFilter narrows a catalog listing
type ProductFilter struct {
	Category   string
	ActiveOnly bool
	Search     string // Substring match on name, description, or SKU
	Limit      int
	Offset     int
}
