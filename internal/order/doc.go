// Package order implements the sale transaction engine.
//
// The processor validates a multi-line sale request against live inventory,
// snapshots unit prices, allocates an invoice number, persists the sale with
// its lines, and decrements stock - all inside one storage transaction. Any
// failure at any step rolls back every side effect, so partial sales are
// never observable.
//
// Cancellation is the compensating operation: it restores each line's
// quantity to the product's stock and marks the sale cancelled, atomically
// and exactly once. A repeat attempt is rejected with ErrAlreadyCancelled
// and changes nothing.
//
// Transient store failures (busy database, lock contention) are retried a
// bounded number of times with exponential backoff; domain validation errors
// are surfaced immediately.
package order
