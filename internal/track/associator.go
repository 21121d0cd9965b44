// Package track implements the identity associator: it links per-frame
// detections into persistent item identities so that stock deltas can be
// derived from identity churn rather than raw per-frame counts.
package track

import (
	"sort"

	"github.com/shelfvision/stockwatch/internal/vision"
)

// AssociatorConfig holds tuning parameters for the associator.
type AssociatorConfig struct {
	MatchIoUThreshold float64 // Minimum IoU for a detection to update an existing item
	MaxMissedFrames   int     // Misses tolerated before an item is retired
}

// DefaultAssociatorConfig returns production-default associator parameters.
func DefaultAssociatorConfig() AssociatorConfig {
	return AssociatorConfig{
		MatchIoUThreshold: 0.3,
		MaxMissedFrames:   2,
	}
}

// TrackedItem is a persistent identity linking detections of the same
// physical item across frames. A TrackedItem maps to exactly one SKU for
// its entire lifetime.
type TrackedItem struct {
	TrackID       int64
	SKU           vision.SKU
	Box           vision.Rect
	FirstFrame    int64
	LastSeenFrame int64
	Misses        int // Consecutive frames without a matching detection
}

// FrameResult reports the outcome of associating one frame.
type FrameResult struct {
	Updated []*TrackedItem // Existing items matched by a detection this frame
	Spawned []*TrackedItem // New identities created this frame
	Retired []*TrackedItem // Items removed from the live set this frame
}

// Associator owns the live TrackedItem set. It is not safe for concurrent
// use; the engine serializes frame processing.
type Associator struct {
	items  map[int64]*TrackedItem
	nextID int64
	config AssociatorConfig
}

// NewAssociator creates an associator with the given configuration.
func NewAssociator(config AssociatorConfig) *Associator {
	return &Associator{
		items:  make(map[int64]*TrackedItem),
		nextID: 1,
		config: config,
	}
}

// Observe processes one frame of detections against the live item set.
//
// For each detection it finds the unmatched live item of the same SKU with
// the greatest box overlap; if that overlap clears the IoU threshold the
// item is updated, otherwise a new identity is spawned. Items left
// unmatched accrue a miss; once misses exceed MaxMissedFrames the item is
// retired. Ties on equal overlap resolve to the smaller (oldest) track ID
// so replays are reproducible.
func (a *Associator) Observe(frameID int64, detections []vision.Detection) FrameResult {
	var result FrameResult

	matched := make(map[int64]bool, len(a.items))

	for _, det := range detections {
		best := a.bestMatch(det, matched)
		if best != nil {
			best.Box = det.Box
			best.LastSeenFrame = frameID
			best.Misses = 0
			matched[best.TrackID] = true
			result.Updated = append(result.Updated, best)
			continue
		}

		item := &TrackedItem{
			TrackID:       a.nextID,
			SKU:           det.Label,
			Box:           det.Box,
			FirstFrame:    frameID,
			LastSeenFrame: frameID,
		}
		a.nextID++
		a.items[item.TrackID] = item
		matched[item.TrackID] = true
		result.Spawned = append(result.Spawned, item)
	}

	// Unmatched items accrue a miss and retire past the threshold.
	for id, item := range a.items {
		if matched[id] {
			continue
		}
		item.Misses++
		if item.Misses > a.config.MaxMissedFrames {
			delete(a.items, id)
			result.Retired = append(result.Retired, item)
		}
	}

	sortItems(result.Retired)
	return result
}

// bestMatch returns the unmatched live item of the detection's SKU with the
// highest IoU above the threshold, or nil. Equal IoU prefers the smaller
// track ID.
func (a *Associator) bestMatch(det vision.Detection, matched map[int64]bool) *TrackedItem {
	var best *TrackedItem
	bestIoU := a.config.MatchIoUThreshold

	for _, item := range a.items {
		if matched[item.TrackID] || item.SKU != det.Label {
			continue
		}
		iou := vision.IoU(item.Box, det.Box)
		if iou < bestIoU {
			continue
		}
		if iou > bestIoU || best == nil || item.TrackID < best.TrackID {
			bestIoU = iou
			best = item
		}
	}
	return best
}

// Live returns the current live item set sorted by track ID.
func (a *Associator) Live() []*TrackedItem {
	items := make([]*TrackedItem, 0, len(a.items))
	for _, item := range a.items {
		items = append(items, item)
	}
	sortItems(items)
	return items
}

// LiveCounts returns the number of live items per SKU.
func (a *Associator) LiveCounts() map[vision.SKU]int {
	counts := make(map[vision.SKU]int)
	for _, item := range a.items {
		counts[item.SKU]++
	}
	return counts
}

// LiveCount returns the total number of live items.
func (a *Associator) LiveCount() int {
	return len(a.items)
}

func sortItems(items []*TrackedItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].TrackID < items[j].TrackID })
}
