package types

import (
	"errors"
	"fmt"
)

// Domain errors surfaced to callers with stable codes
var (
	// ErrProductNotFound is returned when a referenced product doesn't exist
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInactive is returned when a sale references a deactivated product
	ErrProductInactive = errors.New("product is not available")
	// ErrInvalidQuantity is returned when a line quantity is outside [1, 1000]
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
	// ErrSaleNotFound is returned when a referenced sale doesn't exist
	ErrSaleNotFound = errors.New("sale not found")
	// ErrAlreadyCancelled is returned on a repeat cancellation attempt
	ErrAlreadyCancelled = errors.New("sale is already cancelled")
	// ErrSaleNotCompleted is returned when cancelling a sale that never completed
	ErrSaleNotCompleted = errors.New("sale is not in completed status")
	// ErrEmptySale is returned when a sale request carries no lines
	ErrEmptySale = errors.New("sale must contain at least one line")
	// ErrInvalidProduct is returned when catalog input fails validation
	ErrInvalidProduct = errors.New("invalid product")
	// ErrDuplicateSKU is returned when a product SKU is already taken
	ErrDuplicateSKU = errors.New("sku already in use")
	// ErrPermissionDenied is returned when the actor lacks a required capability
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials is returned on a failed authentication attempt
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InsufficientStockError reports a line that could not be covered by the
// product's available stock. Available is the stock observed inside the
// failing transaction.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Stable error codes for the tool surface
const (
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeProductInactive    = "PRODUCT_INACTIVE"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeSaleNotFound       = "SALE_NOT_FOUND"
	CodeAlreadyCancelled   = "ALREADY_CANCELLED"
	CodeSaleNotCompleted   = "SALE_NOT_COMPLETED"
	CodeEmptySale          = "EMPTY_SALE"
	CodeInvalidProduct     = "INVALID_PRODUCT"
	CodeDuplicateSKU       = "DUPLICATE_SKU"
	CodePermissionDenied   = "INSUFFICIENT_PERMISSIONS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL"
)

// ErrorCode maps a domain error to its stable code. Unknown errors map to
// CodeInternal.
func ErrorCode(err error) string {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return CodeInsufficientStock
	case errors.Is(err, ErrProductNotFound):
		return CodeProductNotFound
	case errors.Is(err, ErrProductInactive):
		return CodeProductInactive
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrSaleNotFound):
		return CodeSaleNotFound
	case errors.Is(err, ErrAlreadyCancelled):
		return CodeAlreadyCancelled
	case errors.Is(err, ErrSaleNotCompleted):
		return CodeSaleNotCompleted
	case errors.Is(err, ErrEmptySale):
		return CodeEmptySale
	case errors.Is(err, ErrInvalidProduct):
		return CodeInvalidProduct
	case errors.Is(err, ErrDuplicateSKU):
		return CodeDuplicateSKU
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	default:
		return CodeInternal
	}
}

// IsDomainError reports whether err is an expected, caller-recoverable
// outcome rather than an infrastructure failure.
func IsDomainError(err error) bool {
	return ErrorCode(err) != CodeInternal
}
