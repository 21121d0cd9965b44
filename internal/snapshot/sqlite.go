package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// SQLiteStore persists snapshots in the inventory_snapshots table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a snapshot store backed by the given database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, sku vision.SKU) (*stock.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sku, name, count, severity, min_threshold, critical_threshold, updated_unix_nanos
		FROM inventory_snapshots
		WHERE sku = ?`, string(sku))

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %q: %w", sku, err)
	}
	return rec, nil
}

// Upsert replaces the record for rec.SKU. ON CONFLICT DO UPDATE keeps the
// operation a single atomic statement.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *stock.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_snapshots (
			sku, name, count, severity, min_threshold, critical_threshold, updated_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			count = excluded.count,
			severity = excluded.severity,
			min_threshold = excluded.min_threshold,
			critical_threshold = excluded.critical_threshold,
			updated_unix_nanos = excluded.updated_unix_nanos`,
		string(rec.SKU),
		rec.Name,
		rec.Count,
		string(rec.Severity),
		rec.MinThreshold,
		rec.CriticalThreshold,
		rec.UpdatedUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", rec.SKU, err)
	}
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]stock.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, count, severity, min_threshold, critical_threshold, updated_unix_nanos
		FROM inventory_snapshots
		ORDER BY sku ASC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []stock.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return records, nil
}

func scanRecord(scan func(...any) error) (*stock.Record, error) {
	var rec stock.Record
	var sku, severity string
	var name sql.NullString
	err := scan(&sku, &name, &rec.Count, &severity, &rec.MinThreshold, &rec.CriticalThreshold, &rec.UpdatedUnixNanos)
	if err != nil {
		return nil, err
	}
	rec.SKU = vision.SKU(sku)
	rec.Severity = stock.Severity(severity)
	rec.Name = name.String
	return &rec, nil
}
