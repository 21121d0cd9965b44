package ledger

import (
	"context"
	"sync"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// MemoryLedger is an in-memory Ledger for tests and dev mode. Same
// ordering contract as the SQLite implementation.
type MemoryLedger struct {
	mu     sync.Mutex
	txns   []stock.Transaction
	events []stock.AlertEvent
	closed bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Close makes subsequent appends fail with ErrClosed. Used by engine tests
// to exercise the all-or-nothing frame commit path.
func (l *MemoryLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *MemoryLedger) Append(ctx context.Context, txn *stock.Transaction) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	txn.Seq = int64(len(l.txns)) + 1
	l.txns = append(l.txns, *txn)
	return txn.Seq, nil
}

func (l *MemoryLedger) AppendAlert(ctx context.Context, ev *stock.AlertEvent) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	ev.EventID = int64(len(l.events)) + 1
	l.events = append(l.events, *ev)
	return ev.EventID, nil
}

func (l *MemoryLedger) ListSince(ctx context.Context, since int64, limit int) ([]stock.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	var out []stock.Transaction
	for _, txn := range l.txns {
		if txn.Seq <= since {
			continue
		}
		out = append(out, txn)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *MemoryLedger) ListAlertsSince(ctx context.Context, since int64, limit int) ([]stock.AlertEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	var out []stock.AlertEvent
	for _, ev := range l.events {
		if ev.EventID <= since {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *MemoryLedger) ListRecentBySKU(ctx context.Context, sku vision.SKU, limit int) ([]stock.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	var out []stock.Transaction
	for _, txn := range l.txns {
		if txn.SKU == sku {
			out = append(out, txn)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
