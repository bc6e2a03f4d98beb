package model

import "time"

// PatternType represents the direction of a break & retest setup
type PatternType string

const (
	PatternBullishRetest PatternType = "bullish_retest" // Broken resistance retested as support
	PatternBearishRetest PatternType = "bearish_retest" // Broken support retested as resistance
)

// Valid reports whether p is one of the known pattern types
func (p PatternType) Valid() bool {
	return p == PatternBullishRetest || p == PatternBearishRetest
}

// PivotKind tells whether a pivot is a local high or a local low
type PivotKind string

const (
	PivotHigh PivotKind = "high"
	PivotLow  PivotKind = "low"
)

// Kline represents a candlestick data point
type Kline struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// Time returns the candle open time in UTC
func (k Kline) Time() time.Time {
	return time.UnixMilli(k.OpenTime).UTC()
}

// PivotPoint is a local extremum confirmed by a symmetric window of candles
type PivotPoint struct {
	Index int
	Time  time.Time
	Price float64
	Kind  PivotKind
}

// Level is a clustered support/resistance zone. Levels are recomputed on
// every detection pass and carry no identity across runs.
type Level struct {
	Price      float64   `json:"price"`
	Strength   int       `json:"strength"`
	FirstTouch time.Time `json:"first_touch"`
	LastTouch  time.Time `json:"last_touch"`
}

// Signal is an immutable break & retest detection
type Signal struct {
	Symbol             string      `json:"symbol" bson:"symbol" gorm:"size:20;index:idx_scan_results_lookup,priority:2"`
	Timeframe          string      `json:"timeframe" bson:"timeframe" gorm:"size:10;index:idx_scan_results_lookup,priority:3"`
	PatternType        PatternType `json:"pattern_type" bson:"pattern_type" gorm:"size:50;index:idx_scan_results_lookup,priority:4"`
	LevelPrice         float64     `json:"level_price" bson:"level_price"`
	CurrentPrice       float64     `json:"current_price" bson:"current_price"`
	DistanceToLevelPct float64     `json:"distance_to_level_pct" bson:"distance_to_level_pct"`
	Timestamp          time.Time   `json:"timestamp" bson:"timestamp"`
	Strength           int         `json:"strength" bson:"strength"`
	Message            string      `json:"message" bson:"message" gorm:"type:text"`
}
