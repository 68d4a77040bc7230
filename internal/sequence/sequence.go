// Package sequence produces unique, strictly increasing invoice identifiers.
//
// Identifiers take the form FAC-<year>-<6-digit-sequence>, with the sequence
// reset each calendar year. Allocation goes through an atomic counter row
// rather than counting existing sales, so concurrent commits can never derive
// the same number. Values consumed by transactions that later roll back are
// returned with the rollback; gaps only appear across process boundaries,
// which is acceptable - duplicates are not.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/retailops/backoffice/internal/storage"
)

// Prefix is the fixed invoice number prefix
const Prefix = "FAC"

// Sequencer allocates invoice numbers from the per-year counter
type Sequencer struct {
	now func() time.Time
}

// New creates a sequencer using the wall clock
func New() *Sequencer {
	return &Sequencer{now: time.Now}
}

// NewWithClock creates a sequencer with an injected clock, for tests
func NewWithClock(now func() time.Time) *Sequencer {
	return &Sequencer{now: now}
}

// Next allocates the next invoice number for the current year. It must be
// called with the transaction that persists the sale, so a failed commit
// releases the value.
func (s *Sequencer) Next(ctx context.Context, st storage.Storage) (string, error) {
	year := s.now().Year()
	seq, err := st.NextInvoiceSeq(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return Format(year, seq), nil
}

// Format renders an invoice number from its parts
func Format(year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", Prefix, year, seq)
}
