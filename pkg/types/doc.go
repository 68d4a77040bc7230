// Package types provides shared domain type definitions for the back-office
// core.
//
// This package defines the entities persisted by the storage layer and the
// structures exchanged between the order processor, inventory ledger,
// reporting aggregator, and the tool surface.
//
// # Core Types
//
// Product is a catalog item with a live stock quantity:
//
//	product := &types.Product{
//	    Name:         "Café molido 500g",
//	    SKU:          "CAF-500",
//	    Price:        decimal.NewFromFloat(10.00),
//	    Stock:        25,
//	    StockMinimum: 5,
//	    Active:       true,
//	}
//
// Sale is a committed multi-line transaction with an immutable set of
// SaleLines. Each line snapshots the unit price at sale time, so later
// catalog price changes never alter historical totals.
//
// # Domain Errors
//
// All expected failure outcomes are expressed as sentinel errors or, where
// they carry data, dedicated error types (InsufficientStockError). Every
// domain error maps to a stable string code via ErrorCode for surfacing to
// callers.
package types
