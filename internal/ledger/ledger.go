// Package ledger provides the append-only transaction record. Appends
// assign a strictly increasing, gap-free sequence number; listings are
// ascending, restartable pages. A persistence failure on append surfaces
// to the caller so the engine can abort the frame commit.
package ledger

import (
	"context"
	"errors"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// ErrClosed is returned by appends against a closed ledger.
var ErrClosed = errors.New("ledger closed")

// DefaultListLimit bounds ListSince pages when the caller passes limit <= 0.
const DefaultListLimit = 100

// Ledger is the append-only ordered record of stock deltas and alert
// transitions. Records are immutable once written; implementations never
// reorder or drop them.
type Ledger interface {
	// Append persists tx, assigning the next sequence number atomically
	// with respect to concurrent appends, and returns the assigned seq.
	Append(ctx context.Context, tx *stock.Transaction) (int64, error)

	// AppendAlert persists an alert transition with the next event ID.
	AppendAlert(ctx context.Context, ev *stock.AlertEvent) (int64, error)

	// ListSince returns up to limit transactions with seq strictly greater
	// than since, ascending. Re-running with the same arguments on an
	// unchanged ledger yields identical results.
	ListSince(ctx context.Context, since int64, limit int) ([]stock.Transaction, error)

	// ListAlertsSince returns up to limit alert events with event_id
	// strictly greater than since, ascending.
	ListAlertsSince(ctx context.Context, since int64, limit int) ([]stock.AlertEvent, error)

	// ListRecentBySKU returns the most recent transactions for one SKU in
	// ascending seq order, for chart rendering.
	ListRecentBySKU(ctx context.Context, sku vision.SKU, limit int) ([]stock.Transaction, error)
}
