// Package ledger owns the authoritative stock position of every product.
//
// All stock mutations in the system flow through this package: sale
// consumption, cancellation restoration, and direct restock adjustments.
// Multi-product mutations are applied in ascending product id order so two
// overlapping multi-line sales can never deadlock on each other, and every
// mutation is recorded in the stock movement trail within the same
// transaction.
package ledger
