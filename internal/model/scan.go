package model

import "time"

// ScanResult is a persisted signal owned by a user
type ScanResult struct {
	ID              string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	UserID          int64     `json:"user_id" bson:"user_id" gorm:"index:idx_scan_results_lookup,priority:1"`
	Signal          `bson:",inline" gorm:"embedded"`
	ConfidenceScore float64   `json:"confidence_score" bson:"confidence_score"`
	IsMatch         bool      `json:"is_match" bson:"is_match"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" gorm:"index:idx_scan_results_lookup,priority:5"`
}

// ScanExecution is the append-only audit record of one user scan
type ScanExecution struct {
	ID                string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	UserID            int64     `json:"user_id" bson:"user_id" gorm:"index"`
	SymbolsScanned    int       `json:"symbols_scanned" bson:"symbols_scanned"`
	PairsScanned      int       `json:"pairs_scanned" bson:"pairs_scanned"`
	PairsFailed       int       `json:"pairs_failed" bson:"pairs_failed"`
	SignalsFound      int       `json:"signals_found" bson:"signals_found"`
	DuplicatesSkipped int       `json:"duplicates_skipped" bson:"duplicates_skipped"`
	PersistFailures   int       `json:"persist_failures" bson:"persist_failures"`
	Sensitivity       string    `json:"sensitivity" bson:"sensitivity" gorm:"size:20"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at" gorm:"index"`
}

// WatchlistItem is a symbol a user wants scanned on the given timeframes
type WatchlistItem struct {
	ID         uint      `json:"-" bson:"-" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" bson:"user_id" gorm:"uniqueIndex:idx_watchlist_user_symbol"`
	Symbol     string    `json:"symbol" bson:"symbol" gorm:"size:20;uniqueIndex:idx_watchlist_user_symbol"`
	Timeframes []string  `json:"timeframes" bson:"timeframes" gorm:"serializer:json"`
	IsActive   bool      `json:"is_active" bson:"is_active" gorm:"index"`
	AddedAt    time.Time `json:"added_at" bson:"added_at"`
}

// QueueEntry is the summary of a freshly stored signal waiting in a user mailbox
type QueueEntry struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Timeframe    string      `json:"timeframe"`
	PatternType  PatternType `json:"pattern_type"`
	LevelPrice   float64     `json:"level_price"`
	CurrentPrice float64     `json:"current_price"`
	Message      string      `json:"message"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewQueueEntry summarizes a stored result for the mailbox
func NewQueueEntry(r ScanResult) QueueEntry {
	return QueueEntry{
		ID:           r.ID,
		Symbol:       r.Symbol,
		Timeframe:    r.Timeframe,
		PatternType:  r.PatternType,
		LevelPrice:   r.LevelPrice,
		CurrentPrice: r.CurrentPrice,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt,
	}
}

// ScanJob is one (user, symbol, timeframe) unit of work
type ScanJob struct {
	Seq         int
	UserID      int64
	Symbol      string
	Timeframe   string
	Sensitivity string
}

// PairResult is the outcome of evaluating one ScanJob
type PairResult struct {
	Job              ScanJob
	Signals          []Signal
	Candles          int
	InsufficientData bool
	Err              error
}

// SimilarSignalQuery selects stored signals close to a candidate level
type SimilarSignalQuery struct {
	UserID      int64
	Symbol      string
	Timeframe   string
	PatternType PatternType
	PriceLow    float64
	PriceHigh   float64
	Since       time.Time
}

// SignalFilter selects stored signals. Zero values are ignored.
type SignalFilter struct {
	UserID        int64
	PatternType   PatternType
	IDs           []string
	CreatedBefore time.Time
	CreatedSince  time.Time
	NewestFirst   bool
	Skip          int
	Limit         int
}

// UserScanStatus summarizes scanner activity for one user
type UserScanStatus struct {
	SymbolsMonitored    int        `json:"symbols_monitored"`
	ScansToday          int64      `json:"scans_today"`
	SignalsToday        int64      `json:"signals_today"`
	LastScan            *time.Time `json:"last_scan"`
	IsRunning           bool       `json:"is_running"`
	ScanIntervalMinutes int        `json:"scan_interval_minutes"`
}

func (ScanResult) TableName() string    { return "scan_results" }
func (ScanExecution) TableName() string { return "scan_executions" }
func (WatchlistItem) TableName() string { return "watchlist_items" }
