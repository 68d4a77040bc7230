package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailops/backoffice/internal/ledger"
	"github.com/retailops/backoffice/internal/sequence"
	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// Processor commits sales against live inventory
type Processor struct {
	store  storage.Storage
	ledger *ledger.Ledger
	seq    *sequence.Sequencer
	retry  RetryConfig
	log    *zap.Logger
}

// New creates a sale processor
func New(store storage.Storage, ldg *ledger.Ledger, seq *sequence.Sequencer, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		store:  store,
		ledger: ldg,
		seq:    seq,
		retry:  DefaultRetryConfig(),
		log:    log,
	}
}

// validateRequest checks the request shape before any store access
func validateRequest(req *types.SaleRequest) error {
	if len(req.Lines) == 0 {
		return types.ErrEmptySale
	}
	for _, line := range req.Lines {
		if line.Quantity < types.MinLineQuantity || line.Quantity > types.MaxLineQuantity {
			return types.ErrInvalidQuantity
		}
	}
	return nil
}

// CreateSale validates and commits a multi-line sale as one atomic unit.
// actorID is the authenticated seller; authorization happens before this
// call. On success the returned sale is fully populated, status completed,
// with its invoice number assigned.
func (p *Processor) CreateSale(ctx context.Context, actorID int64, req types.SaleRequest) (*types.Sale, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	sale, err := retryWithBackoff(ctx, p.retry, func() (*types.Sale, error) {
		return p.createSaleOnce(ctx, actorID, req)
	})
	if err != nil {
		if types.IsDomainError(err) {
			p.log.Info("sale rejected",
				zap.Int64("actor_id", actorID),
				zap.String("code", types.ErrorCode(err)))
		} else {
			p.log.Error("sale failed", zap.Int64("actor_id", actorID), zap.Error(err))
		}
		return nil, err
	}

	p.log.Info("sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice", sale.InvoiceNumber),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.Int("lines", len(sale.Lines)),
		zap.Int64("actor_id", actorID))

	return sale, nil
}

func (p *Processor) createSaleOnce(ctx context.Context, actorID int64, req types.SaleRequest) (*types.Sale, error) {
	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lines are processed in ascending product id order so concurrent
	// multi-item sales sharing products cannot deadlock on each other
	requested := make([]types.SaleRequestLine, len(req.Lines))
	copy(requested, req.Lines)
	sort.Slice(requested, func(i, j int) bool { return requested[i].ProductID < requested[j].ProductID })

	total := decimal.Zero
	lines := make([]types.SaleLine, 0, len(requested))
	deltas := make([]ledger.Delta, 0, len(requested))

	for _, reqLine := range requested {
		product, err := tx.GetProduct(ctx, reqLine.ProductID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrProductNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", reqLine.ProductID, err)
		}
		if !product.Active {
			return nil, types.ErrProductInactive
		}
		if !product.HasStock(reqLine.Quantity) {
			return nil, &types.InsufficientStockError{
				ProductID: product.ID,
				Available: product.Stock,
				Requested: reqLine.Quantity,
			}
		}

		// Snapshot the unit price; later catalog changes never touch this line
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(reqLine.Quantity))).Round(2)
		total = total.Add(subtotal)
		lines = append(lines, types.SaleLine{
			ProductID: product.ID,
			Quantity:  reqLine.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
		deltas = append(deltas, ledger.Delta{ProductID: product.ID, Qty: -reqLine.Quantity})
	}

	// The invoice number is allocated inside this transaction: a failed
	// commit releases the value with the rollback
	invoice, err := p.seq.Next(ctx, tx)
	if err != nil {
		return nil, err
	}

	sale := &types.Sale{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Total:         total,
		Status:        types.SaleCompleted,
		InvoiceNumber: invoice,
		SellerID:      actorID,
	}
	if err := tx.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to persist sale: %w", err)
	}
	if err := tx.InsertSaleLines(ctx, sale.ID, lines); err != nil {
		return nil, fmt.Errorf("failed to persist sale lines: %w", err)
	}

	if err := p.ledger.ApplyDeltas(ctx, tx, deltas, types.MovementSale, &sale.ID, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	sale.Lines = lines
	return sale, nil
}

// GetSale loads a sale with its lines
func (p *Processor) GetSale(ctx context.Context, saleID int64) (*types.Sale, error) {
	sale, err := p.store.GetSale(ctx, saleID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrSaleNotFound
	}
	return sale, err
}

// ListSales returns sales matching the filter, newest first by default
func (p *Processor) ListSales(ctx context.Context, filter types.SaleFilter) ([]*types.Sale, error) {
	return p.store.ListSales(ctx, filter)
}
