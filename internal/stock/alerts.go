package stock

// Thresholds configures the alert bands for one SKU. CriticalThreshold
// must be strictly below MinThreshold.
type Thresholds struct {
	MinThreshold      int
	CriticalThreshold int
}

// SeverityFor maps a count onto its alert severity:
//
//	count <= critical           -> CRITICAL
//	critical < count <= min     -> LOW
//	count > min                 -> NORMAL
//
// The machine is memoryless: severity is recomputed from scratch after
// every delta application, so it can never drift from the current count.
func SeverityFor(count int, t Thresholds) Severity {
	switch {
	case count <= t.CriticalThreshold:
		return SeverityCritical
	case count <= t.MinThreshold:
		return SeverityLow
	default:
		return SeverityNormal
	}
}

// ApplyDelta applies a signed delta to a count, clamping at zero. The
// second return reports whether clamping occurred; callers record clamped
// REMOVEs as anomaly transactions rather than applying them silently.
func ApplyDelta(count, delta int) (result int, clamped bool) {
	result = count + delta
	if result < 0 {
		return 0, true
	}
	return result, false
}
