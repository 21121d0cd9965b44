// Package engine orchestrates the per-frame inventory pipeline: detection
// validation, identity association, delta computation, alert evaluation,
// and the all-or-nothing ledger/snapshot commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/ledger"
	"github.com/shelfvision/stockwatch/internal/snapshot"
	"github.com/shelfvision/stockwatch/internal/stats"
	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/track"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// ErrFrameOutOfOrder rejects a frame whose ID does not advance past the
// last processed frame. Frame order is significant: delta computation
// depends on the previous frame's live-item set.
var ErrFrameOutOfOrder = errors.New("frame out of order")

// FrameOutcome summarises one committed frame.
type FrameOutcome struct {
	FrameID            int64
	DetectionsSeen     int
	DetectionsRejected int
	Spawned            int
	Retired            int
	Transactions       []stock.Transaction
	Alerts             []stock.AlertEvent
}

// Engine drives the inventory pipeline. All frame processing is serialized
// behind a single mutex; the ledger and snapshot store may additionally be
// shared with readers.
type Engine struct {
	mu sync.Mutex

	runID     string
	cfg       *config.TuningConfig
	assoc     *track.Associator
	ledger    ledger.Ledger
	snapshots snapshot.Store
	frameStat *stats.FrameStats

	lastFrameID int64

	// records caches the committed per-SKU state so severity transitions
	// can be detected without a store read per delta.
	records map[vision.SKU]stock.Record
}

// New creates an engine. A fresh run ID is stamped on every ledger row the
// engine writes, so replays and restarts are distinguishable downstream.
func New(cfg *config.TuningConfig, lg ledger.Ledger, store snapshot.Store, frameStat *stats.FrameStats) *Engine {
	return &Engine{
		runID: uuid.New().String(),
		cfg:   cfg,
		assoc: track.NewAssociator(track.AssociatorConfig{
			MatchIoUThreshold: cfg.GetMatchIoUThreshold(),
			MaxMissedFrames:   cfg.GetMaxMissedFrames(),
		}),
		ledger:    lg,
		snapshots: store,
		frameStat: frameStat,
		records:   make(map[vision.SKU]stock.Record),
	}
}

// RunID returns the engine's run identifier.
func (e *Engine) RunID() string { return e.runID }

// Bootstrap seeds the engine's record cache from the snapshot store and
// writes initial records for configured SKUs that have none yet. New SKUs
// start at count 0 with NORMAL severity; their first detections arrive as
// ADD deltas.
func (e *Engine) Bootstrap(ctx context.Context, nowNanos int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.snapshots.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: list snapshots: %w", err)
	}
	for _, rec := range existing {
		e.records[rec.SKU] = rec
	}

	for _, sc := range e.cfg.SKUs {
		if _, ok := e.records[sc.SKU]; ok {
			continue
		}
		t := e.cfg.ThresholdsFor(sc.SKU)
		rec := stock.Record{
			SKU:               sc.SKU,
			Name:              sc.Name,
			Count:             0,
			Severity:          stock.SeverityNormal,
			MinThreshold:      t.MinThreshold,
			CriticalThreshold: t.CriticalThreshold,
			UpdatedUnixNanos:  nowNanos,
		}
		if err := e.snapshots.Upsert(ctx, &rec); err != nil {
			return fmt.Errorf("bootstrap: seed %q: %w", sc.SKU, err)
		}
		e.records[sc.SKU] = rec
	}

	return nil
}

// ProcessFrame runs one frame through the pipeline. The frame's deltas are
// committed all-or-nothing: a ledger append failure aborts the commit
// before any snapshot is written, and the error surfaces to the caller
// (retry policy belongs there, not here).
func (e *Engine) ProcessFrame(ctx context.Context, frame vision.Frame) (*FrameOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if frame.FrameID <= e.lastFrameID {
		return nil, fmt.Errorf("%w: frame %d after frame %d", ErrFrameOutOfOrder, frame.FrameID, e.lastFrameID)
	}
	e.lastFrameID = frame.FrameID

	// Validate each detection individually; a malformed record drops out
	// of this frame, the remainder proceeds.
	valid := make([]vision.Detection, 0, len(frame.Detections))
	rejected := 0
	for _, det := range frame.Detections {
		if err := det.Validate(); err != nil {
			rejected++
			opsf("frame %d: rejected detection: %v", frame.FrameID, err)
			continue
		}
		valid = append(valid, det)
		if e.frameStat != nil {
			e.frameStat.AddConfidence(det.Label, det.Confidence)
		}
	}
	if e.frameStat != nil {
		e.frameStat.AddDetections(len(frame.Detections), rejected)
	}

	before := e.assoc.LiveCounts()
	result := e.assoc.Observe(frame.FrameID, valid)
	after := e.assoc.LiveCounts()

	tracef("frame %d: %d detections (%d rejected), %d updated, %d spawned, %d retired, %d live",
		frame.FrameID, len(frame.Detections), rejected,
		len(result.Updated), len(result.Spawned), len(result.Retired), e.assoc.LiveCount())

	deltas := stock.ComputeDeltas(before, after)

	outcome := &FrameOutcome{
		FrameID:            frame.FrameID,
		DetectionsSeen:     len(frame.Detections),
		DetectionsRejected: rejected,
		Spawned:            len(result.Spawned),
		Retired:            len(result.Retired),
	}

	// Stage the new per-SKU state; nothing is merged into the cache or the
	// snapshot store until every ledger append has succeeded.
	staged := make(map[vision.SKU]stock.Record, len(deltas))
	anomalies := 0
	for _, d := range deltas {
		cur := e.recordFor(d.SKU)

		newCount, clamped := stock.ApplyDelta(cur.Count, d.Delta)
		if clamped {
			anomalies++
			opsf("frame %d: sku %q delta %d overshoots count %d, clamped to 0",
				frame.FrameID, d.SKU, d.Delta, cur.Count)
		}
		severity := stock.SeverityFor(newCount, stock.Thresholds{
			MinThreshold:      cur.MinThreshold,
			CriticalThreshold: cur.CriticalThreshold,
		})

		outcome.Transactions = append(outcome.Transactions, stock.Transaction{
			TSUnixNanos:    frame.TSUnixNanos,
			RunID:          e.runID,
			FrameID:        frame.FrameID,
			SKU:            d.SKU,
			Delta:          d.Delta,
			Kind:           d.Kind(),
			ResultingCount: newCount,
			SeverityAfter:  severity,
			Anomaly:        clamped,
		})

		if severity != cur.Severity {
			outcome.Alerts = append(outcome.Alerts, stock.AlertEvent{
				TSUnixNanos: frame.TSUnixNanos,
				RunID:       e.runID,
				FrameID:     frame.FrameID,
				SKU:         d.SKU,
				OldSeverity: cur.Severity,
				NewSeverity: severity,
			})
			diagf("frame %d: sku %q severity %s -> %s (count %d)",
				frame.FrameID, d.SKU, cur.Severity, severity, newCount)
		}

		cur.Count = newCount
		cur.Severity = severity
		cur.UpdatedUnixNanos = frame.TSUnixNanos
		staged[d.SKU] = cur
	}

	if err := e.commit(ctx, outcome, staged); err != nil {
		if e.frameStat != nil {
			e.frameStat.AddFailedFrame()
		}
		opsf("frame %d: commit aborted: %v", frame.FrameID, err)
		return nil, fmt.Errorf("frame %d commit: %w", frame.FrameID, err)
	}

	for sku, rec := range staged {
		e.records[sku] = rec
	}
	if e.frameStat != nil {
		e.frameStat.AddFrame(len(outcome.Transactions), len(outcome.Alerts), anomalies)
	}

	for _, txn := range outcome.Transactions {
		diagf("frame %d: sku %q %s %+d -> count %d (%s)",
			frame.FrameID, txn.SKU, txn.Kind, txn.Delta, txn.ResultingCount, txn.SeverityAfter)
	}

	return outcome, nil
}

// commit appends the frame's transactions and alert events, then upserts
// snapshots. No snapshot is written until its transaction is durably
// appended; an append failure leaves the snapshot store untouched for
// this frame.
func (e *Engine) commit(ctx context.Context, outcome *FrameOutcome, staged map[vision.SKU]stock.Record) error {
	for i := range outcome.Transactions {
		if _, err := e.ledger.Append(ctx, &outcome.Transactions[i]); err != nil {
			return fmt.Errorf("append transaction for %q: %w", outcome.Transactions[i].SKU, err)
		}
	}

	for i := range outcome.Alerts {
		if _, err := e.ledger.AppendAlert(ctx, &outcome.Alerts[i]); err != nil {
			return fmt.Errorf("append alert for %q: %w", outcome.Alerts[i].SKU, err)
		}
	}

	for _, txn := range outcome.Transactions {
		rec := staged[txn.SKU]
		if err := e.snapshots.Upsert(ctx, &rec); err != nil {
			return fmt.Errorf("upsert snapshot for %q: %w", txn.SKU, err)
		}
	}

	return nil
}

// recordFor returns the cached record for a SKU, or a default NORMAL/0
// record with configured thresholds for a SKU never seen before.
func (e *Engine) recordFor(sku vision.SKU) stock.Record {
	if rec, ok := e.records[sku]; ok {
		return rec
	}
	t := e.cfg.ThresholdsFor(sku)
	return stock.Record{
		SKU:               sku,
		Name:              e.cfg.NameFor(sku),
		Count:             0,
		Severity:          stock.SeverityNormal,
		MinThreshold:      t.MinThreshold,
		CriticalThreshold: t.CriticalThreshold,
	}
}

// LiveTrackCount reports the associator's current live identity count.
func (e *Engine) LiveTrackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assoc.LiveCount()
}
