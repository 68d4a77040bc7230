package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/retailops/backoffice/internal/ledger"
	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// CancelSale reverses a completed sale: every line's quantity is restored to
// its product's stock and the sale is marked cancelled, atomically. A second
// attempt on the same sale fails ErrAlreadyCancelled and performs no stock
// change.
func (p *Processor) CancelSale(ctx context.Context, actorID int64, saleID int64) error {
	_, err := retryWithBackoff(ctx, p.retry, func() (struct{}, error) {
		return struct{}{}, p.cancelSaleOnce(ctx, actorID, saleID)
	})
	if err != nil {
		if types.IsDomainError(err) {
			p.log.Info("cancellation rejected",
				zap.Int64("sale_id", saleID),
				zap.String("code", types.ErrorCode(err)))
		} else {
			p.log.Error("cancellation failed", zap.Int64("sale_id", saleID), zap.Error(err))
		}
		return err
	}

	p.log.Info("sale cancelled",
		zap.Int64("sale_id", saleID),
		zap.Int64("actor_id", actorID))
	return nil
}

func (p *Processor) cancelSaleOnce(ctx context.Context, actorID int64, saleID int64) error {
	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin cancellation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := tx.GetSale(ctx, saleID)
	if errors.Is(err, storage.ErrNotFound) {
		return types.ErrSaleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load sale %d: %w", saleID, err)
	}

	switch sale.Status {
	case types.SaleCancelled:
		return types.ErrAlreadyCancelled
	case types.SaleCompleted:
		// Proceed
	default:
		return types.ErrSaleNotCompleted
	}

	deltas := make([]ledger.Delta, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		deltas = append(deltas, ledger.Delta{ProductID: line.ProductID, Qty: line.Quantity})
	}

	if err := p.ledger.ApplyDeltas(ctx, tx, deltas, types.MovementCancellation, &sale.ID, actorID); err != nil {
		return err
	}

	if err := tx.UpdateSaleStatus(ctx, sale.ID, types.SaleCancelled); err != nil {
		return fmt.Errorf("failed to mark sale cancelled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}
