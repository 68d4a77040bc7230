package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item and its live stock position
type Product struct {
	ID           int64
	Name         string
	Description  string
	Category     string
	SKU          string
	Price        decimal.Decimal // Unit price, 2-decimal currency
	Stock        int
	StockMinimum int
	ImageURL     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasStock reports whether the product can cover the requested quantity
func (p *Product) HasStock(qty int) bool {
	return p.Stock >= qty
}

// LowStock reports whether the stock is at or below the restock threshold
func (p *Product) LowStock() bool {
	return p.Stock <= p.StockMinimum
}

// InventoryValue returns price × stock for the product
func (p *Product) InventoryValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// StockOperation is the direction of a direct (non-sale) stock adjustment
type StockOperation string

const (
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

// MovementReason classifies the origin of a stock mutation
type MovementReason string

const (
	MovementSale         MovementReason = "sale"
	MovementCancellation MovementReason = "cancellation"
	MovementAdjustment   MovementReason = "adjustment"
)

// StockMovement is one entry in the audit trail of stock mutations.
// Delta is negative for consumption and positive for restoration.
type StockMovement struct {
	ID        int64
	ProductID int64
	Delta     int
	Reason    MovementReason
	SaleID    *int64 // Nullable - set for sale/cancellation movements
	ActorID   int64
	CreatedAt time.Time
}
