package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// SQLiteLedger persists transactions and alert events in SQLite. Sequence
// assignment is serialized under a mutex; the rest of the frame pipeline
// does not need to hold it.
type SQLiteLedger struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteLedger creates a ledger backed by the given database. The
// transactions and alert_events tables must already exist.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// Append inserts tx with seq = MAX(seq)+1 inside one database transaction.
// On success tx.Seq is set to the assigned value.
func (l *SQLiteLedger) Append(ctx context.Context, txn *stock.Transaction) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dbtx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}

	var seq int64
	if err := dbtx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions`).Scan(&seq); err != nil {
		dbtx.Rollback()
		return 0, fmt.Errorf("assign seq: %w", err)
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO transactions (
			seq, ts_unix_nanos, run_id, frame_id, sku,
			delta, kind, resulting_count, severity_after, anomaly
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq,
		txn.TSUnixNanos,
		txn.RunID,
		txn.FrameID,
		string(txn.SKU),
		txn.Delta,
		string(txn.Kind),
		txn.ResultingCount,
		string(txn.SeverityAfter),
		boolToInt(txn.Anomaly),
	)
	if err != nil {
		dbtx.Rollback()
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}

	txn.Seq = seq
	return seq, nil
}

// AppendAlert inserts an alert transition with event_id = MAX(event_id)+1.
func (l *SQLiteLedger) AppendAlert(ctx context.Context, ev *stock.AlertEvent) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dbtx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin alert append tx: %w", err)
	}

	var id int64
	if err := dbtx.QueryRowContext(ctx, `SELECT COALESCE(MAX(event_id), 0) + 1 FROM alert_events`).Scan(&id); err != nil {
		dbtx.Rollback()
		return 0, fmt.Errorf("assign event id: %w", err)
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO alert_events (
			event_id, ts_unix_nanos, run_id, frame_id, sku, old_severity, new_severity
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		ev.TSUnixNanos,
		ev.RunID,
		ev.FrameID,
		string(ev.SKU),
		string(ev.OldSeverity),
		string(ev.NewSeverity),
	)
	if err != nil {
		dbtx.Rollback()
		return 0, fmt.Errorf("insert alert event: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit alert append: %w", err)
	}

	ev.EventID = id
	return id, nil
}

// ListSince returns transactions with seq > since, ascending.
func (l *SQLiteLedger) ListSince(ctx context.Context, since int64, limit int) ([]stock.Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, ts_unix_nanos, run_id, frame_id, sku,
		       delta, kind, resulting_count, severity_after, anomaly
		FROM transactions
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []stock.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txns, nil
}

// ListAlertsSince returns alert events with event_id > since, ascending.
func (l *SQLiteLedger) ListAlertsSince(ctx context.Context, since int64, limit int) ([]stock.AlertEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT event_id, ts_unix_nanos, run_id, frame_id, sku, old_severity, new_severity
		FROM alert_events
		WHERE event_id > ?
		ORDER BY event_id ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert events: %w", err)
	}
	defer rows.Close()

	var events []stock.AlertEvent
	for rows.Next() {
		var ev stock.AlertEvent
		var sku, oldSev, newSev string
		if err := rows.Scan(&ev.EventID, &ev.TSUnixNanos, &ev.RunID, &ev.FrameID, &sku, &oldSev, &newSev); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		ev.SKU = vision.SKU(sku)
		ev.OldSeverity = stock.Severity(oldSev)
		ev.NewSeverity = stock.Severity(newSev)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert events: %w", err)
	}

	return events, nil
}

// ListRecentBySKU returns the newest limit transactions for sku, returned
// oldest first so chart series read left to right.
func (l *SQLiteLedger) ListRecentBySKU(ctx context.Context, sku vision.SKU, limit int) ([]stock.Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, ts_unix_nanos, run_id, frame_id, sku,
		       delta, kind, resulting_count, severity_after, anomaly
		FROM (
			SELECT * FROM transactions WHERE sku = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, string(sku), limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions by sku: %w", err)
	}
	defer rows.Close()

	var txns []stock.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions by sku: %w", err)
	}

	return txns, nil
}

func scanTransaction(rows *sql.Rows) (stock.Transaction, error) {
	var txn stock.Transaction
	var sku, kind, severity string
	var anomaly int
	err := rows.Scan(
		&txn.Seq,
		&txn.TSUnixNanos,
		&txn.RunID,
		&txn.FrameID,
		&sku,
		&txn.Delta,
		&kind,
		&txn.ResultingCount,
		&severity,
		&anomaly,
	)
	if err != nil {
		return stock.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	txn.SKU = vision.SKU(sku)
	txn.Kind = stock.TransactionKind(kind)
	txn.SeverityAfter = stock.Severity(severity)
	txn.Anomaly = anomaly != 0
	return txn, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
