package stock

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shelfvision/stockwatch/internal/vision"
)

func TestComputeDeltas(t *testing.T) {
	tests := []struct {
		name   string
		before map[vision.SKU]int
		after  map[vision.SKU]int
		want   []Delta
	}{
		{
			name:   "no change",
			before: map[vision.SKU]int{"laptop-box": 3},
			after:  map[vision.SKU]int{"laptop-box": 3},
			want:   nil,
		},
		{
			name:   "both empty",
			before: map[vision.SKU]int{},
			after:  map[vision.SKU]int{},
			want:   nil,
		},
		{
			name:   "items appeared",
			before: map[vision.SKU]int{},
			after:  map[vision.SKU]int{"laptop-box": 2},
			want:   []Delta{{SKU: "laptop-box", Delta: 2}},
		},
		{
			name:   "items vanished",
			before: map[vision.SKU]int{"laptop-box": 5},
			after:  map[vision.SKU]int{},
			want:   []Delta{{SKU: "laptop-box", Delta: -5}},
		},
		{
			name: "independent SKUs in sorted order",
			before: map[vision.SKU]int{
				"monitor-stand": 4,
				"laptop-box":    2,
				"accessory-kit": 1,
			},
			after: map[vision.SKU]int{
				"monitor-stand": 1,
				"laptop-box":    2,
				"accessory-kit": 3,
			},
			want: []Delta{
				{SKU: "accessory-kit", Delta: 2},
				{SKU: "monitor-stand", Delta: -3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDeltas(tt.before, tt.after)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ComputeDeltas mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeDeltasIsPure(t *testing.T) {
	before := map[vision.SKU]int{"laptop-box": 3}
	after := map[vision.SKU]int{"laptop-box": 1}

	first := ComputeDeltas(before, after)
	second := ComputeDeltas(before, after)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated calls disagree (-first +second):\n%s", diff)
	}
	if before["laptop-box"] != 3 || after["laptop-box"] != 1 {
		t.Errorf("inputs mutated: before=%v after=%v", before, after)
	}
}

func TestDeltaKind(t *testing.T) {
	if k := (Delta{SKU: "laptop-box", Delta: 2}).Kind(); k != KindAdd {
		t.Errorf("positive delta Kind = %s, want ADD", k)
	}
	if k := (Delta{SKU: "laptop-box", Delta: -1}).Kind(); k != KindRemove {
		t.Errorf("negative delta Kind = %s, want REMOVE", k)
	}
}
