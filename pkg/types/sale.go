package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

// Quantity bounds for a single sale line
const (
	MinLineQuantity = 1
	MaxLineQuantity = 1000
)

// Sale represents a committed sale transaction.
// Status moves at most along pending → completed → cancelled; cancelled is
// terminal. The line set is immutable once committed - corrections require a
// new sale.
type Sale struct {
	ID            int64
	CustomerName  string
	CustomerEmail string // Optional
	CustomerPhone string // Optional
	Total         decimal.Decimal
	Status        SaleStatus
	InvoiceNumber string
	SellerID      int64
	Lines         []SaleLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SaleLine is one product position within a sale. UnitPrice is a snapshot of
// the catalog price at sale time.
type SaleLine struct {
	ID        int64
	SaleID    int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	CreatedAt time.Time
}

// LineTotal recomputes quantity × unit price rounded to the cent
func (l *SaleLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// SaleRequest is the input to the order processor
type SaleRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Lines         []SaleRequestLine
}

// SaleRequestLine is one requested (product, quantity) pair
type SaleRequestLine struct {
	ProductID int64
	Quantity  int
}
