package vision

import (
	"errors"
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{
			name: "identical boxes",
			a:    Rect{X: 0, Y: 0, W: 2, H: 2},
			b:    Rect{X: 0, Y: 0, W: 2, H: 2},
			want: 1.0,
		},
		{
			name: "disjoint boxes",
			a:    Rect{X: 0, Y: 0, W: 1, H: 1},
			b:    Rect{X: 5, Y: 5, W: 1, H: 1},
			want: 0,
		},
		{
			name: "touching edges do not overlap",
			a:    Rect{X: 0, Y: 0, W: 1, H: 1},
			b:    Rect{X: 1, Y: 0, W: 1, H: 1},
			want: 0,
		},
		{
			name: "half overlap",
			a:    Rect{X: 0, Y: 0, W: 2, H: 1},
			b:    Rect{X: 1, Y: 0, W: 2, H: 1},
			want: 1.0 / 3.0, // inter 1, union 3
		},
		{
			name: "contained box",
			a:    Rect{X: 0, Y: 0, W: 4, H: 4},
			b:    Rect{X: 1, Y: 1, W: 2, H: 2},
			want: 4.0 / 16.0,
		},
		{
			name: "degenerate first box",
			a:    Rect{X: 0, Y: 0, W: 0, H: 2},
			b:    Rect{X: 0, Y: 0, W: 2, H: 2},
			want: 0,
		},
		{
			name: "negative dimensions",
			a:    Rect{X: 0, Y: 0, W: -1, H: 2},
			b:    Rect{X: 0, Y: 0, W: 2, H: 2},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("IoU(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// IoU is symmetric
			if rev := IoU(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("IoU not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestDetectionValidate(t *testing.T) {
	valid := Detection{Label: "laptop-box", Box: Rect{X: 0, Y: 0, W: 1, H: 1}, Confidence: 0.9}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid detection rejected: %v", err)
	}

	tests := []struct {
		name string
		det  Detection
	}{
		{"empty label", Detection{Label: "", Box: Rect{W: 1, H: 1}, Confidence: 0.5}},
		{"zero width", Detection{Label: "laptop-box", Box: Rect{W: 0, H: 1}, Confidence: 0.5}},
		{"negative height", Detection{Label: "laptop-box", Box: Rect{W: 1, H: -1}, Confidence: 0.5}},
		{"confidence below zero", Detection{Label: "laptop-box", Box: Rect{W: 1, H: 1}, Confidence: -0.1}},
		{"confidence above one", Detection{Label: "laptop-box", Box: Rect{W: 1, H: 1}, Confidence: 1.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.det.Validate()
			if err == nil {
				t.Fatalf("Validate() accepted %+v", tt.det)
			}
			if !errors.Is(err, ErrMalformedDetection) {
				t.Errorf("error %v does not wrap ErrMalformedDetection", err)
			}
		})
	}

	// Boundary confidences are valid.
	for _, c := range []float64{0, 1} {
		d := Detection{Label: "laptop-box", Box: Rect{W: 1, H: 1}, Confidence: c}
		if err := d.Validate(); err != nil {
			t.Errorf("confidence %v rejected: %v", c, err)
		}
	}
}
