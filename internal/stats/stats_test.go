package stats

import (
	"math"
	"sync"
	"testing"
)

func TestSnapshotCounters(t *testing.T) {
	fs := NewFrameStats()

	fs.AddFrame(3, 1, 0)
	fs.AddFrame(0, 0, 1)
	fs.AddFailedFrame()
	fs.AddDetections(10, 2)
	fs.AddDetections(5, 0)

	snap := fs.Snapshot()
	if snap.FramesProcessed != 2 {
		t.Errorf("FramesProcessed = %d, want 2", snap.FramesProcessed)
	}
	if snap.FramesFailed != 1 {
		t.Errorf("FramesFailed = %d, want 1", snap.FramesFailed)
	}
	if snap.DetectionsSeen != 15 || snap.DetectionsRejected != 2 {
		t.Errorf("detections = %d/%d, want 15/2", snap.DetectionsSeen, snap.DetectionsRejected)
	}
	if snap.TransactionsWritten != 3 {
		t.Errorf("TransactionsWritten = %d, want 3", snap.TransactionsWritten)
	}
	if snap.AlertTransitions != 1 || snap.ClampAnomalies != 1 {
		t.Errorf("alerts/anomalies = %d/%d, want 1/1", snap.AlertTransitions, snap.ClampAnomalies)
	}
}

func TestSnapshotConfidenceQuantiles(t *testing.T) {
	fs := NewFrameStats()

	for _, c := range []float64{0.8, 0.9, 1.0} {
		fs.AddConfidence("laptop-box", c)
	}
	fs.AddConfidence("accessory-kit", 0.75)

	snap := fs.Snapshot()
	if len(snap.Confidence) != 2 {
		t.Fatalf("%d confidence entries, want 2", len(snap.Confidence))
	}
	// Sorted by SKU.
	if snap.Confidence[0].SKU != "accessory-kit" || snap.Confidence[1].SKU != "laptop-box" {
		t.Fatalf("confidence order: %s, %s", snap.Confidence[0].SKU, snap.Confidence[1].SKU)
	}

	lap := snap.Confidence[1]
	if lap.Samples != 3 {
		t.Errorf("samples = %d, want 3", lap.Samples)
	}
	if math.Abs(lap.Mean-0.9) > 1e-9 {
		t.Errorf("mean = %v, want 0.9", lap.Mean)
	}
	if lap.P50 < 0.8 || lap.P50 > 1.0 {
		t.Errorf("p50 = %v out of sample range", lap.P50)
	}
	if lap.P95 < lap.P50 {
		t.Errorf("p95 %v below p50 %v", lap.P95, lap.P50)
	}
}

func TestConfidenceWindowBounded(t *testing.T) {
	fs := NewFrameStats()
	for i := 0; i < confidenceWindow*2; i++ {
		fs.AddConfidence("laptop-box", 0.9)
	}

	snap := fs.Snapshot()
	if len(snap.Confidence) != 1 {
		t.Fatalf("%d confidence entries, want 1", len(snap.Confidence))
	}
	if got := snap.Confidence[0].Samples; got != confidenceWindow {
		t.Errorf("samples = %d, want window size %d", got, confidenceWindow)
	}
}

func TestFrameStatsConcurrentAccess(t *testing.T) {
	fs := NewFrameStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fs.AddFrame(1, 0, 0)
				fs.AddDetections(2, 0)
				fs.AddConfidence("laptop-box", 0.8)
				fs.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := fs.Snapshot()
	if snap.FramesProcessed != 800 {
		t.Errorf("FramesProcessed = %d, want 800", snap.FramesProcessed)
	}
	if snap.DetectionsSeen != 1600 {
		t.Errorf("DetectionsSeen = %d, want 1600", snap.DetectionsSeen)
	}
}
