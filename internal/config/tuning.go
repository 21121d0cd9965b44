// Package config loads the monitor's tuning configuration. Fields are
// pointer-typed so partial JSON files are safe: anything omitted falls
// back to the Get* defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// SKUConfig describes one stock-keeping unit. Threshold fields override
// the global defaults when set.
type SKUConfig struct {
	SKU               vision.SKU `json:"sku"`
	Name              string     `json:"name,omitempty"`
	MinThreshold      *int       `json:"min_threshold,omitempty"`
	CriticalThreshold *int       `json:"critical_threshold,omitempty"`
	InitialStock      *int       `json:"initial_stock,omitempty"`
}

// TuningConfig is the root configuration. The schema matches the
// /api/config endpoint so the same JSON serves startup configuration and
// runtime inspection.
type TuningConfig struct {
	// Associator params
	MatchIoUThreshold *float64 `json:"match_iou_threshold,omitempty"`
	MaxMissedFrames   *int     `json:"max_missed_frames,omitempty"`

	// Alert params (global defaults, overridable per SKU)
	MinThreshold      *int `json:"min_threshold,omitempty"`
	CriticalThreshold *int `json:"critical_threshold,omitempty"`

	// Feed params
	FrameInterval     *string  `json:"frame_interval,omitempty"` // duration string like "1s"
	ChangeProbability *float64 `json:"change_probability,omitempty"`

	// Tracked SKUs
	SKUs []SKUConfig `json:"skus,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// carry a .json extension and the file must fit under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MatchIoUThreshold != nil {
		if *c.MatchIoUThreshold <= 0 || *c.MatchIoUThreshold > 1 {
			return fmt.Errorf("match_iou_threshold must be in (0,1], got %f", *c.MatchIoUThreshold)
		}
	}

	if c.MaxMissedFrames != nil && *c.MaxMissedFrames < 0 {
		return fmt.Errorf("max_missed_frames must be non-negative, got %d", *c.MaxMissedFrames)
	}

	if c.ChangeProbability != nil {
		if *c.ChangeProbability < 0 || *c.ChangeProbability > 1 {
			return fmt.Errorf("change_probability must be in [0,1], got %f", *c.ChangeProbability)
		}
	}

	if c.FrameInterval != nil && *c.FrameInterval != "" {
		if _, err := time.ParseDuration(*c.FrameInterval); err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
	}

	if c.GetCriticalThreshold() >= c.GetMinThreshold() {
		return fmt.Errorf("critical_threshold (%d) must be below min_threshold (%d)",
			c.GetCriticalThreshold(), c.GetMinThreshold())
	}

	seen := make(map[vision.SKU]bool)
	for _, sc := range c.SKUs {
		if sc.SKU == "" {
			return fmt.Errorf("skus entries must have a non-empty sku")
		}
		if seen[sc.SKU] {
			return fmt.Errorf("duplicate sku %q", sc.SKU)
		}
		seen[sc.SKU] = true

		t := c.ThresholdsFor(sc.SKU)
		if t.CriticalThreshold >= t.MinThreshold {
			return fmt.Errorf("sku %q: critical_threshold (%d) must be below min_threshold (%d)",
				sc.SKU, t.CriticalThreshold, t.MinThreshold)
		}
		if sc.InitialStock != nil && *sc.InitialStock < 0 {
			return fmt.Errorf("sku %q: initial_stock must be non-negative, got %d", sc.SKU, *sc.InitialStock)
		}
	}

	return nil
}

// GetMatchIoUThreshold returns the match_iou_threshold value or the default.
func (c *TuningConfig) GetMatchIoUThreshold() float64 {
	if c.MatchIoUThreshold == nil {
		return 0.3
	}
	return *c.MatchIoUThreshold
}

// GetMaxMissedFrames returns the max_missed_frames value or the default.
func (c *TuningConfig) GetMaxMissedFrames() int {
	if c.MaxMissedFrames == nil {
		return 2
	}
	return *c.MaxMissedFrames
}

// GetMinThreshold returns the global min_threshold value or the default.
func (c *TuningConfig) GetMinThreshold() int {
	if c.MinThreshold == nil {
		return 5
	}
	return *c.MinThreshold
}

// GetCriticalThreshold returns the global critical_threshold value or the default.
func (c *TuningConfig) GetCriticalThreshold() int {
	if c.CriticalThreshold == nil {
		return 2
	}
	return *c.CriticalThreshold
}

// GetFrameInterval parses and returns the frame_interval as a Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetChangeProbability returns the change_probability value or the default.
func (c *TuningConfig) GetChangeProbability() float64 {
	if c.ChangeProbability == nil {
		return 0.3
	}
	return *c.ChangeProbability
}

// ThresholdsFor returns the alert thresholds for a SKU, applying per-SKU
// overrides on top of the global defaults. Unknown SKUs get the globals.
func (c *TuningConfig) ThresholdsFor(sku vision.SKU) stock.Thresholds {
	t := stock.Thresholds{
		MinThreshold:      c.GetMinThreshold(),
		CriticalThreshold: c.GetCriticalThreshold(),
	}
	for _, sc := range c.SKUs {
		if sc.SKU != sku {
			continue
		}
		if sc.MinThreshold != nil {
			t.MinThreshold = *sc.MinThreshold
		}
		if sc.CriticalThreshold != nil {
			t.CriticalThreshold = *sc.CriticalThreshold
		}
		break
	}
	return t
}

// NameFor returns the display name configured for a SKU, or "".
func (c *TuningConfig) NameFor(sku vision.SKU) string {
	for _, sc := range c.SKUs {
		if sc.SKU == sku {
			return sc.Name
		}
	}
	return ""
}

// InitialStockFor returns the configured starting stock for a SKU, or 0.
func (c *TuningConfig) InitialStockFor(sku vision.SKU) int {
	for _, sc := range c.SKUs {
		if sc.SKU == sku && sc.InitialStock != nil {
			return *sc.InitialStock
		}
	}
	return 0
}
