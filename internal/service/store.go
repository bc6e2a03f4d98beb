package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakretest-go/internal/model"
)

// CandleProvider supplies ordered candle series for a symbol and timeframe
type CandleProvider interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error)
}

// WatchlistReader lists active watchlist items. A zero userID lists every user.
type WatchlistReader interface {
	ListActive(ctx context.Context, userID int64) ([]model.WatchlistItem, error)
}

// SignalStore persists scan results and execution records
type SignalStore interface {
	InsertSignal(ctx context.Context, result *model.ScanResult) error
	ExistsSimilar(ctx context.Context, query model.SimilarSignalQuery) (bool, error)
	InsertExecution(ctx context.Context, execution *model.ScanExecution) error
	ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.ScanResult, error)
	CountSignals(ctx context.Context, filter model.SignalFilter) (int64, error)
	DeleteSignals(ctx context.Context, filter model.SignalFilter) (int64, error)
	LastExecution(ctx context.Context, userID int64) (*model.ScanExecution, error)
	CountExecutions(ctx context.Context, userID int64, since time.Time) (int64, error)
}

// ErrInsufficientData marks a series too short for detection. It is never
// surfaced as a failure.
var ErrInsufficientData = errors.New("insufficient candle data")

// ProviderError is a candle fetch failure for one symbol/timeframe pair
type ProviderError struct {
	Symbol    string
	Timeframe string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error for %s %s: %v", e.Symbol, e.Timeframe, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PersistenceError is a store failure for one operation
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
