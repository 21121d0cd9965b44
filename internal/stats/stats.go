// Package stats tracks engine counters and per-SKU detection-confidence
// statistics for the /api/stats endpoint.
package stats

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/shelfvision/stockwatch/internal/vision"
)

// confidenceWindow bounds the per-SKU confidence sample buffer.
const confidenceWindow = 256

// FrameStats tracks frame-processing statistics with thread-safe operations.
type FrameStats struct {
	mu                  sync.Mutex
	framesProcessed     int64
	framesFailed        int64
	detectionsSeen      int64
	detectionsRejected  int64
	transactionsWritten int64
	clampAnomalies      int64
	alertTransitions    int64

	confidences map[vision.SKU][]float64
}

// NewFrameStats creates an empty FrameStats instance.
func NewFrameStats() *FrameStats {
	return &FrameStats{confidences: make(map[vision.SKU][]float64)}
}

// AddFrame records one fully committed frame.
func (fs *FrameStats) AddFrame(transactions, alerts, anomalies int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.framesProcessed++
	fs.transactionsWritten += int64(transactions)
	fs.alertTransitions += int64(alerts)
	fs.clampAnomalies += int64(anomalies)
}

// AddFailedFrame records a frame whose commit was aborted.
func (fs *FrameStats) AddFailedFrame() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.framesFailed++
}

// AddDetections records seen and rejected detection counts for a frame.
func (fs *FrameStats) AddDetections(seen, rejected int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.detectionsSeen += int64(seen)
	fs.detectionsRejected += int64(rejected)
}

// AddConfidence appends a detection confidence sample for a SKU, keeping
// the newest confidenceWindow samples.
func (fs *FrameStats) AddConfidence(sku vision.SKU, confidence float64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	samples := append(fs.confidences[sku], confidence)
	if len(samples) > confidenceWindow {
		samples = samples[len(samples)-confidenceWindow:]
	}
	fs.confidences[sku] = samples
}

// ConfidenceStats summarises detection confidence for one SKU.
type ConfidenceStats struct {
	SKU     vision.SKU `json:"sku"`
	Samples int        `json:"samples"`
	Mean    float64    `json:"mean"`
	P50     float64    `json:"p50"`
	P95     float64    `json:"p95"`
}

// Snapshot is a copy of all counters, safe to serialize.
type Snapshot struct {
	FramesProcessed     int64             `json:"frames_processed"`
	FramesFailed        int64             `json:"frames_failed"`
	DetectionsSeen      int64             `json:"detections_seen"`
	DetectionsRejected  int64             `json:"detections_rejected"`
	TransactionsWritten int64             `json:"transactions_written"`
	ClampAnomalies      int64             `json:"clamp_anomalies"`
	AlertTransitions    int64             `json:"alert_transitions"`
	Confidence          []ConfidenceStats `json:"confidence,omitempty"`
}

// Snapshot returns a copy of the current statistics.
func (fs *FrameStats) Snapshot() Snapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	snap := Snapshot{
		FramesProcessed:     fs.framesProcessed,
		FramesFailed:        fs.framesFailed,
		DetectionsSeen:      fs.detectionsSeen,
		DetectionsRejected:  fs.detectionsRejected,
		TransactionsWritten: fs.transactionsWritten,
		ClampAnomalies:      fs.clampAnomalies,
		AlertTransitions:    fs.alertTransitions,
	}

	skus := make([]vision.SKU, 0, len(fs.confidences))
	for sku := range fs.confidences {
		skus = append(skus, sku)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i] < skus[j] })

	for _, sku := range skus {
		samples := fs.confidences[sku]
		if len(samples) == 0 {
			continue
		}
		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)

		snap.Confidence = append(snap.Confidence, ConfidenceStats{
			SKU:     sku,
			Samples: len(sorted),
			Mean:    stat.Mean(sorted, nil),
			P50:     stat.Quantile(0.50, stat.Empirical, sorted, nil),
			P95:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
		})
	}

	return snap
}
