package config

import (
	"fmt"
	"strings"
)

const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"

	MinScanIntervalMinutes = 1
	MaxScanIntervalMinutes = 60
)

// SensitivityProfile bundles the break & retest detector thresholds.
// Percent fields are in percent units (0.5 = 0.5%).
type SensitivityProfile struct {
	Name               string  `json:"name"`
	PivotLookback      int     `json:"pivot_lookback"`
	LevelTolerancePct  float64 `json:"level_tolerance_pct"`
	MinTouches         int     `json:"min_touches"`
	RetestTolerancePct float64 `json:"retest_tolerance_pct"`
	MinBreakoutPct     float64 `json:"min_breakout_pct"`
	MaxRetestCandles   int     `json:"max_retest_candles"`
}

// MinCandles is the shortest series the detector will evaluate
func (p SensitivityProfile) MinCandles() int {
	return 2*p.PivotLookback + p.MaxRetestCandles
}

var sensitivityProfiles = map[string]SensitivityProfile{
	// fewer signals, higher confidence
	SensitivityLow: {
		Name:               SensitivityLow,
		PivotLookback:      15,
		LevelTolerancePct:  0.2,
		MinTouches:         3,
		RetestTolerancePct: 0.3,
		MinBreakoutPct:     0.8,
		MaxRetestCandles:   30,
	},
	SensitivityMedium: {
		Name:               SensitivityMedium,
		PivotLookback:      10,
		LevelTolerancePct:  0.3,
		MinTouches:         2,
		RetestTolerancePct: 0.5,
		MinBreakoutPct:     0.5,
		MaxRetestCandles:   50,
	},
	// recall over precision
	SensitivityHigh: {
		Name:               SensitivityHigh,
		PivotLookback:      5,
		LevelTolerancePct:  0.5,
		MinTouches:         2,
		RetestTolerancePct: 0.8,
		MinBreakoutPct:     0.3,
		MaxRetestCandles:   80,
	},
}

// GetSensitivity returns the named profile, falling back to medium
func GetSensitivity(name string) SensitivityProfile {
	if profile, ok := sensitivityProfiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return profile
	}
	return sensitivityProfiles[SensitivityMedium]
}

// ParseSensitivity returns the named profile or an error for unknown names.
// An empty name selects medium.
func ParseSensitivity(name string) (SensitivityProfile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return sensitivityProfiles[SensitivityMedium], nil
	}
	profile, ok := sensitivityProfiles[key]
	if !ok {
		return SensitivityProfile{}, fmt.Errorf("unknown sensitivity %q (want low, medium or high)", name)
	}
	return profile, nil
}

// ClampInterval bounds a scan interval to the supported range
func ClampInterval(minutes int) int {
	if minutes < MinScanIntervalMinutes {
		return MinScanIntervalMinutes
	}
	if minutes > MaxScanIntervalMinutes {
		return MaxScanIntervalMinutes
	}
	return minutes
}
