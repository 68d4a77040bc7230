package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// Ledger guards the stock quantity of every product
type Ledger struct {
	store storage.Storage
	log   *zap.Logger
}

// New creates a ledger over the given store
func New(store storage.Storage, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log}
}

// Delta is one requested stock mutation. Qty is negative for consumption and
// positive for restoration.
type Delta struct {
	ProductID int64
	Qty       int
}

// CheckAvailable reports whether the product is active and has at least qty
// units in stock
func (l *Ledger) CheckAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	product, err := l.store.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, types.ErrProductNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return product.Active && product.HasStock(qty), nil
}

// ApplyDeltas applies every delta or none. It must be called with a
// transaction-scoped Storage so a mid-list failure rolls back the already
// applied entries. Deltas are applied in ascending product id order; callers
// holding locks elsewhere must acquire them in the same order.
func (l *Ledger) ApplyDeltas(ctx context.Context, st storage.Storage, deltas []Delta, reason types.MovementReason, saleID *int64, actorID int64) error {
	sorted := make([]Delta, len(deltas))
	copy(sorted, deltas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, delta := range sorted {
		if err := st.AdjustStock(ctx, delta.ProductID, delta.Qty); err != nil {
			if errors.Is(err, storage.ErrStockGuard) {
				return l.insufficient(ctx, st, delta)
			}
			if errors.Is(err, storage.ErrNotFound) {
				return types.ErrProductNotFound
			}
			return fmt.Errorf("failed to apply stock delta: %w", err)
		}

		movement := &types.StockMovement{
			ProductID: delta.ProductID,
			Delta:     delta.Qty,
			Reason:    reason,
			SaleID:    saleID,
			ActorID:   actorID,
		}
		if err := st.InsertStockMovement(ctx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
	}
	return nil
}

// insufficient builds the structured error with the stock observed inside
// the failing transaction
func (l *Ledger) insufficient(ctx context.Context, st storage.Storage, delta Delta) error {
	available := 0
	if product, err := st.GetProduct(ctx, delta.ProductID); err == nil {
		available = product.Stock
	}
	return &types.InsufficientStockError{
		ProductID: delta.ProductID,
		Available: available,
		Requested: -delta.Qty,
	}
}

// Adjust performs a direct (non-sale) stock adjustment, e.g. a restock or a
// shrinkage correction. The stock change and its movement record commit
// atomically. Returns the product with its updated stock.
func (l *Ledger) Adjust(ctx context.Context, productID int64, op types.StockOperation, qty int, actorID int64) (*types.Product, error) {
	if qty < 1 {
		return nil, types.ErrInvalidQuantity
	}

	delta := qty
	if op == types.StockSubtract {
		delta = -qty
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin adjustment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = l.ApplyDeltas(ctx, tx, []Delta{{ProductID: productID, Qty: delta}}, types.MovementAdjustment, nil, actorID)
	if err != nil {
		return nil, err
	}

	product, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	l.log.Info("stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", product.Stock),
		zap.Int64("actor_id", actorID))

	return product, nil
}

// Movements returns the most recent stock movements for a product
func (l *Ledger) Movements(ctx context.Context, productID int64, limit int) ([]*types.StockMovement, error) {
	return l.store.ListStockMovements(ctx, productID, limit)
}
