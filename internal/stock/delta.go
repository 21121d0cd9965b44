package stock

import (
	"sort"

	"github.com/shelfvision/stockwatch/internal/vision"
)

// Delta is a signed per-SKU count change between two frames.
type Delta struct {
	SKU   vision.SKU
	Delta int
}

// Kind returns the classification of the delta's sign. Zero deltas never
// reach a transaction, so Kind is only meaningful for non-zero values.
func (d Delta) Kind() TransactionKind {
	if d.Delta > 0 {
		return KindAdd
	}
	return KindRemove
}

// ComputeDeltas diffs per-SKU live-item counts between consecutive frames.
// SKUs with unchanged counts produce no delta. The function is pure and
// each SKU is diffed independently; results are sorted by SKU so a frame's
// transactions commit in a stable order.
func ComputeDeltas(before, after map[vision.SKU]int) []Delta {
	skus := make(map[vision.SKU]bool, len(before)+len(after))
	for sku := range before {
		skus[sku] = true
	}
	for sku := range after {
		skus[sku] = true
	}

	var deltas []Delta
	for sku := range skus {
		if d := after[sku] - before[sku]; d != 0 {
			deltas = append(deltas, Delta{SKU: sku, Delta: d})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].SKU < deltas[j].SKU })
	return deltas
}
