// Package catalog manages the product catalog: creation, updates, soft
// deletion, search, and direct stock adjustments. Stock mutations are
// delegated to the inventory ledger so every change leaves a movement
// record.
package catalog
