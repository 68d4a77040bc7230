// Package storage provides SQLite-based persistence for the back-office core.
//
// The storage layer manages:
//   - The product catalog and its live stock quantities
//   - Sales and their immutable line sets
//   - Per-year invoice counters
//   - The stock movement audit trail
//   - Back-office users
//   - Aggregate reporting queries over completed sales
//
// # Database Schema
//
// Tables:
//   - products: catalog items with stock and restock thresholds
//   - sales: committed sale transactions
//   - sale_lines: per-product positions with price snapshots
//   - invoice_counters: one atomically incremented row per calendar year
//   - stock_movements: audit trail of every stock mutation
//   - users: back-office operators
//
// Monetary amounts are stored as integer cents and converted to
// decimal.Decimal at the package boundary, so SQL aggregation stays exact.
//
// # Transactions
//
// Use transactions for atomic multi-step operations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	// Multiple operations in transaction
//	seq, _ := tx.NextInvoiceSeq(ctx, year)
//	_ = tx.CreateSale(ctx, sale)
//	_ = tx.InsertSaleLines(ctx, sale.ID, lines)
//	_ = tx.AdjustStock(ctx, productID, -qty)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// The Tx interface embeds Storage, so any code written against Storage runs
// unchanged inside a transaction.
//
// # Stock Guard
//
// AdjustStock performs a guarded update: a decrement that would push stock
// below zero leaves the row untouched and returns ErrStockGuard. Combined
// with the single-writer connection pool this makes overselling impossible
// regardless of caller interleaving.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
package storage
