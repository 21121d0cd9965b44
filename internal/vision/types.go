// Package vision defines the detection data model shared by the feed,
// the associator, and the engine. Detections are abstract records: the
// engine never sees pixels, only labelled boxes, so any real detector
// can be substituted for the simulated feed.
package vision

import (
	"errors"
	"fmt"
)

// SKU identifies an inventory item type (stock-keeping unit).
type SKU string

// Rect is an axis-aligned bounding box in shelf coordinates.
// X, Y is the top-left corner; W and H must be positive.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the box area. Degenerate boxes have zero area.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// IoU computes intersection-over-union between two boxes.
// Returns 0 when either box is degenerate or they do not overlap.
func IoU(a, b Rect) float64 {
	areaA := a.Area()
	areaB := b.Area()
	if areaA == 0 || areaB == 0 {
		return 0
	}

	ix := max(a.X, b.X)
	iy := max(a.Y, b.Y)
	ix2 := min(a.X+a.W, b.X+b.W)
	iy2 := min(a.Y+a.H, b.Y+b.H)
	if ix2 <= ix || iy2 <= iy {
		return 0
	}

	inter := (ix2 - ix) * (iy2 - iy)
	return inter / (areaA + areaB - inter)
}

// Detection is a single per-frame observation of an item on the shelf.
// Ephemeral: it exists only within one frame's processing.
type Detection struct {
	Label      SKU     `json:"label"`
	Box        Rect    `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Frame is one unit of input from the detection feed. FrameID must be
// strictly increasing across the feed; TSUnixNanos non-decreasing.
type Frame struct {
	FrameID     int64       `json:"frame_id"`
	TSUnixNanos int64       `json:"ts_unix_nanos"`
	Detections  []Detection `json:"detections"`
}

// ErrMalformedDetection is the sentinel wrapped by Detection.Validate.
var ErrMalformedDetection = errors.New("malformed detection")

// Validate checks the structural invariants of a detection. A failing
// detection is rejected individually; the rest of the frame proceeds.
func (d Detection) Validate() error {
	if d.Label == "" {
		return fmt.Errorf("%w: empty label", ErrMalformedDetection)
	}
	if d.Box.W <= 0 || d.Box.H <= 0 {
		return fmt.Errorf("%w: non-positive box %vx%v for %q", ErrMalformedDetection, d.Box.W, d.Box.H, d.Label)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of [0,1] for %q", ErrMalformedDetection, d.Confidence, d.Label)
	}
	return nil
}
