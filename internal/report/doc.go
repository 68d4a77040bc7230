// Package report computes read-only rollups over persisted sales: period
// totals, time-bucketed series, product and seller rankings, low-stock
// summaries, and the daily dashboard. Reports are advisory snapshots; the
// package never writes and relies only on the store's default read
// consistency.
package report
