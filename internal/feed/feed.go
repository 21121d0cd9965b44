// Package feed simulates the detection pipeline: per frame it emits the
// current shelf contents as labelled bounding boxes, occasionally adding
// or removing a unit to mimic warehouse activity. Any real detector can
// replace it; the engine only consumes vision.Frame values.
package feed

import (
	"math/rand"
	"time"

	"github.com/shelfvision/stockwatch/internal/config"
	"github.com/shelfvision/stockwatch/internal/monitoring"
	"github.com/shelfvision/stockwatch/internal/vision"
)

const (
	unitSize    = 1.0 // simulated box edge length, shelf units
	slotPitch   = 1.2 // distance between slot origins
	rowPitch    = 2.0 // distance between per-SKU shelf rows
	jitterMax   = 0.05
	slotsPerRow = 64
)

// unit is one physical item sitting in a shelf slot. Its position stays
// stable across frames so the associator re-acquires it by overlap.
type unit struct {
	sku  vision.SKU
	slot int
}

// Simulator generates frames deterministically under a fixed seed.
type Simulator struct {
	rng        *rand.Rand
	changeProb float64
	skus       []vision.SKU
	units      []unit
	occupied   map[vision.SKU]map[int]bool
	nextFrame  int64
}

// NewSimulator builds a simulator stocked with each configured SKU's
// initial units.
func NewSimulator(cfg *config.TuningConfig, seed int64) *Simulator {
	s := &Simulator{
		rng:        rand.New(rand.NewSource(seed)),
		changeProb: cfg.GetChangeProbability(),
		occupied:   make(map[vision.SKU]map[int]bool),
		nextFrame:  1,
	}
	for _, sc := range cfg.SKUs {
		s.skus = append(s.skus, sc.SKU)
		s.occupied[sc.SKU] = make(map[int]bool)
		for i := 0; i < cfg.InitialStockFor(sc.SKU); i++ {
			s.addUnit(sc.SKU)
		}
	}
	return s
}

// Next produces the next frame: possibly one ADD or REMOVE of a random
// SKU, then the full detection set with positional jitter.
func (s *Simulator) Next(now time.Time) vision.Frame {
	if len(s.skus) > 0 && s.rng.Float64() < s.changeProb {
		sku := s.skus[s.rng.Intn(len(s.skus))]
		if s.rng.Intn(2) == 0 {
			s.addUnit(sku)
			monitoring.Logf("[feed] simulated ADD of %q", sku)
		} else if s.removeUnit(sku) {
			monitoring.Logf("[feed] simulated REMOVE of %q", sku)
		}
	}

	frame := vision.Frame{
		FrameID:     s.nextFrame,
		TSUnixNanos: now.UnixNano(),
	}
	s.nextFrame++

	for _, u := range s.units {
		box := s.boxFor(u)
		frame.Detections = append(frame.Detections, vision.Detection{
			Label:      u.sku,
			Box:        box,
			Confidence: 0.75 + 0.25*s.rng.Float64(),
		})
	}
	return frame
}

// boxFor lays the unit out on its SKU's shelf row with a small jitter.
func (s *Simulator) boxFor(u unit) vision.Rect {
	row := 0
	for i, sku := range s.skus {
		if sku == u.sku {
			row = i
			break
		}
	}
	jx := (s.rng.Float64()*2 - 1) * jitterMax
	jy := (s.rng.Float64()*2 - 1) * jitterMax
	return vision.Rect{
		X: float64(u.slot%slotsPerRow)*slotPitch + jx,
		Y: float64(row)*rowPitch + float64(u.slot/slotsPerRow)*slotPitch + jy,
		W: unitSize,
		H: unitSize,
	}
}

// addUnit places a new unit of sku in its lowest free slot.
func (s *Simulator) addUnit(sku vision.SKU) {
	slots := s.occupied[sku]
	if slots == nil {
		slots = make(map[int]bool)
		s.occupied[sku] = slots
		s.skus = append(s.skus, sku)
	}
	slot := 0
	for slots[slot] {
		slot++
	}
	slots[slot] = true
	s.units = append(s.units, unit{sku: sku, slot: slot})
}

// removeUnit takes one random unit of sku off the shelf. Returns false
// when none are present.
func (s *Simulator) removeUnit(sku vision.SKU) bool {
	var candidates []int
	for i, u := range s.units {
		if u.sku == sku {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	idx := candidates[s.rng.Intn(len(candidates))]
	delete(s.occupied[sku], s.units[idx].slot)
	s.units = append(s.units[:idx], s.units[idx+1:]...)
	return true
}

// UnitCount returns the simulator's ground-truth unit count for a SKU.
func (s *Simulator) UnitCount(sku vision.SKU) int {
	n := 0
	for _, u := range s.units {
		if u.sku == sku {
			n++
		}
	}
	return n
}
