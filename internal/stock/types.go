// Package stock holds the inventory domain model: per-SKU records, the
// alert severity machine, stock deltas, and ledger transaction types.
package stock

import "github.com/shelfvision/stockwatch/internal/vision"

// Severity is the alert level derived from a SKU's count and thresholds.
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityLow      Severity = "LOW"
	SeverityCritical Severity = "CRITICAL"
)

// TransactionKind classifies the sign of a stock delta.
type TransactionKind string

const (
	KindAdd    TransactionKind = "ADD"
	KindRemove TransactionKind = "REMOVE"
)

// Record is the durable per-SKU inventory state read by the API layer.
// Count is never negative. Severity is always the deterministic function
// of Count against the thresholds; it is only written together with a
// delta application.
type Record struct {
	SKU               vision.SKU `json:"sku"`
	Name              string     `json:"name,omitempty"`
	Count             int        `json:"count"`
	Severity          Severity   `json:"severity"`
	MinThreshold      int        `json:"min_threshold"`
	CriticalThreshold int        `json:"critical_threshold"`
	UpdatedUnixNanos  int64      `json:"updated_unix_nanos"`
}

// Transaction is one immutable ledger row. Seq is assigned by the ledger
// at append time and is strictly increasing with no gaps. Anomaly marks a
// REMOVE that was clamped at zero instead of driving the count negative.
type Transaction struct {
	Seq            int64           `json:"seq"`
	TSUnixNanos    int64           `json:"ts_unix_nanos"`
	RunID          string          `json:"run_id"`
	FrameID        int64           `json:"frame_id"`
	SKU            vision.SKU      `json:"sku"`
	Delta          int             `json:"delta"`
	Kind           TransactionKind `json:"kind"`
	ResultingCount int             `json:"resulting_count"`
	SeverityAfter  Severity        `json:"severity_after"`
	Anomaly        bool            `json:"anomaly"`
}

// AlertEvent records one severity transition. Emitted only when the
// severity actually changes; same-severity re-evaluation is silent.
type AlertEvent struct {
	EventID     int64      `json:"event_id"`
	TSUnixNanos int64      `json:"ts_unix_nanos"`
	RunID       string     `json:"run_id"`
	FrameID     int64      `json:"frame_id"`
	SKU         vision.SKU `json:"sku"`
	OldSeverity Severity   `json:"old_severity"`
	NewSeverity Severity   `json:"new_severity"`
}
