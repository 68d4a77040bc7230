package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailops/backoffice/internal/ledger"
	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// Catalog exposes product management on top of the store and the ledger
type Catalog struct {
	store  storage.Storage
	ledger *ledger.Ledger
	log    *zap.Logger
}

// New creates a catalog over the given store and ledger
func New(store storage.Storage, ldg *ledger.Ledger, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{store: store, ledger: ldg, log: log}
}

// ProductInput carries the caller-editable fields of a product
type ProductInput struct {
	Name         string
	Description  string
	Category     string
	SKU          string
	Price        decimal.Decimal
	Stock        int
	StockMinimum int
	ImageURL     string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", types.ErrInvalidProduct)
	}
	if strings.TrimSpace(in.SKU) == "" {
		return fmt.Errorf("%w: sku is required", types.ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", types.ErrInvalidProduct)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", types.ErrInvalidProduct)
	}
	if in.StockMinimum < 0 {
		return fmt.Errorf("%w: stock minimum must not be negative", types.ErrInvalidProduct)
	}
	return nil
}

// Create adds a new active product to the catalog
func (c *Catalog) Create(ctx context.Context, in ProductInput) (*types.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &types.Product{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     in.Category,
		SKU:          strings.TrimSpace(in.SKU),
		Price:        in.Price.Round(2),
		Stock:        in.Stock,
		StockMinimum: in.StockMinimum,
		ImageURL:     in.ImageURL,
		Active:       true,
	}
	if err := c.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateSKU, product.SKU)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	c.log.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU))
	return product, nil
}

// Update rewrites the editable fields of a product. SKU and stock are not
// touched here; the SKU is immutable and stock goes through AdjustStock.
// Committed sale lines keep the price they captured.
func (c *Catalog) Update(ctx context.Context, productID int64, in ProductInput) (*types.Product, error) {
	product, err := c.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	in.SKU = product.SKU
	in.Stock = product.Stock
	if err := in.validate(); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.Category = in.Category
	product.Price = in.Price.Round(2)
	product.StockMinimum = in.StockMinimum
	product.ImageURL = in.ImageURL

	if err := c.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Get returns a product by id
func (c *Catalog) Get(ctx context.Context, productID int64) (*types.Product, error) {
	product, err := c.store.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrProductNotFound
	}
	return product, err
}

// GetBySKU returns a product by its SKU
func (c *Catalog) GetBySKU(ctx context.Context, sku string) (*types.Product, error) {
	product, err := c.store.GetProductBySKU(ctx, sku)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrProductNotFound
	}
	return product, err
}

// List returns products matching the filter
func (c *Catalog) List(ctx context.Context, filter storage.ProductFilter) ([]*types.Product, error) {
	return c.store.ListProducts(ctx, filter)
}

// Deactivate soft-deletes a product. Existing sales keep their lines; the
// product just stops being sellable.
func (c *Catalog) Deactivate(ctx context.Context, productID int64) error {
	return c.setActive(ctx, productID, false)
}

// Restore makes a deactivated product sellable again
func (c *Catalog) Restore(ctx context.Context, productID int64) error {
	return c.setActive(ctx, productID, true)
}

func (c *Catalog) setActive(ctx context.Context, productID int64, active bool) error {
	err := c.store.SetProductActive(ctx, productID, active)
	if errors.Is(err, storage.ErrNotFound) {
		return types.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to change product state: %w", err)
	}
	c.log.Info("product state changed",
		zap.Int64("product_id", productID),
		zap.Bool("active", active))
	return nil
}

// AdjustStock applies a manual stock correction through the ledger and
// returns the product with its updated stock
func (c *Catalog) AdjustStock(ctx context.Context, actorID, productID int64, op types.StockOperation, qty int) (*types.Product, error) {
	if op != types.StockAdd && op != types.StockSubtract {
		return nil, fmt.Errorf("%w: unknown operation %q", types.ErrInvalidProduct, op)
	}
	return c.ledger.Adjust(ctx, productID, op, qty, actorID)
}
