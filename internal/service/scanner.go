package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"breakretest-go/internal/config"
	"breakretest-go/internal/model"

	"github.com/google/uuid"
)

// StoreOutcome is what happened to one detected signal
type StoreOutcome int

const (
	OutcomeStored StoreOutcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

func (o StoreOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// ScannerService runs detection for single pairs and manages stored results
type ScannerService struct {
	provider    CandleProvider
	store       SignalStore
	guard       *DuplicateGuard
	candleLimit int
	now         func() time.Time
}

func NewScannerService(provider CandleProvider, store SignalStore, guard *DuplicateGuard, candleLimit int) *ScannerService {
	return &ScannerService{
		provider:    provider,
		store:       store,
		guard:       guard,
		candleLimit: candleLimit,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for created_at stamps and status queries
func (s *ScannerService) SetClock(now func() time.Time) {
	s.now = now
}

// Guard returns the duplicate guard
func (s *ScannerService) Guard() *DuplicateGuard {
	return s.guard
}

// EvaluatePair fetches candles for one job and runs the detector. It never
// touches shared state, so it is safe to call from many workers.
func (s *ScannerService) EvaluatePair(ctx context.Context, job model.ScanJob) model.PairResult {
	result := model.PairResult{Job: job}
	profile := config.GetSensitivity(job.Sensitivity)

	limit := s.candleLimit
	if limit < profile.MinCandles() {
		limit = profile.MinCandles()
	}

	klines, err := s.provider.GetKlines(ctx, job.Symbol, job.Timeframe, limit)
	if err != nil {
		result.Err = &ProviderError{Symbol: job.Symbol, Timeframe: job.Timeframe, Err: err}
		return result
	}
	result.Candles = len(klines)

	if len(klines) < profile.MinCandles() {
		result.InsufficientData = true
		return result
	}

	result.Signals = NewBreakRetestDetector(profile).Detect(klines, job.Symbol, job.Timeframe)
	return result
}

// StoreSignal runs a detected signal through the duplicate guard and persists
// it. Callers must serialize StoreSignal calls for the same user.
func (s *ScannerService) StoreSignal(ctx context.Context, userID int64, signal model.Signal) (*model.ScanResult, StoreOutcome, error) {
	duplicate, err := s.guard.Exists(ctx, userID, signal.Symbol, signal.Timeframe, signal.PatternType, signal.LevelPrice)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	if duplicate {
		return nil, OutcomeDuplicate, nil
	}

	result := &model.ScanResult{
		ID:              uuid.New().String(),
		UserID:          userID,
		Signal:          signal,
		ConfidenceScore: confidenceFromStrength(signal.Strength),
		IsMatch:         true,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.store.InsertSignal(ctx, result); err != nil {
		return nil, OutcomeFailed, &PersistenceError{Op: "insert_signal", Err: err}
	}
	return result, OutcomeStored, nil
}

// RecordExecution appends the audit record of one user scan
func (s *ScannerService) RecordExecution(ctx context.Context, execution *model.ScanExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = s.now().UTC()
	}
	if err := s.store.InsertExecution(ctx, execution); err != nil {
		return &PersistenceError{Op: "insert_execution", Err: err}
	}
	return nil
}

// GetResults returns a page of stored results, newest first, and the total count
func (s *ScannerService) GetResults(ctx context.Context, userID int64, pattern model.PatternType, skip, limit int) ([]model.ScanResult, int64, error) {
	filter := model.SignalFilter{
		UserID:      userID,
		PatternType: pattern,
		NewestFirst: true,
		Skip:        skip,
		Limit:       limit,
	}

	results, err := s.store.ListSignals(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}

	total, err := s.store.CountSignals(ctx, model.SignalFilter{UserID: userID, PatternType: pattern})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	return results, total, nil
}

// ClearOldResults deletes results older than days. Zero days deletes everything.
func (s *ScannerService) ClearOldResults(ctx context.Context, userID int64, days int) (int64, error) {
	filter := model.SignalFilter{UserID: userID}
	if days > 0 {
		filter.CreatedBefore = s.now().UTC().AddDate(0, 0, -days)
	}

	deleted, err := s.store.DeleteSignals(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to clear results: %w", err)
	}

	log.Printf("🗑️ [Scanner] Cleared %d results for user %d (older than %d days)", deleted, userID, days)
	return deleted, nil
}

// PurgeDuplicates removes duplicate stored results for the user
func (s *ScannerService) PurgeDuplicates(ctx context.Context, userID int64) (int, error) {
	return s.guard.PurgeDuplicates(ctx, userID)
}

// UserStatus summarizes the user's watchlist and today's scanner activity
func (s *ScannerService) UserStatus(ctx context.Context, userID int64, watchlist WatchlistReader) (model.UserScanStatus, error) {
	var status model.UserScanStatus

	items, err := watchlist.ListActive(ctx, userID)
	if err != nil {
		return status, fmt.Errorf("failed to read watchlist: %w", err)
	}
	status.SymbolsMonitored = len(items)

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if status.ScansToday, err = s.store.CountExecutions(ctx, userID, today); err != nil {
		return status, fmt.Errorf("failed to count executions: %w", err)
	}
	if status.SignalsToday, err = s.store.CountSignals(ctx, model.SignalFilter{UserID: userID, CreatedSince: today}); err != nil {
		return status, fmt.Errorf("failed to count signals: %w", err)
	}

	last, err := s.store.LastExecution(ctx, userID)
	if err != nil {
		return status, fmt.Errorf("failed to read last execution: %w", err)
	}
	if last != nil {
		at := last.CreatedAt
		status.LastScan = &at
	}

	return status, nil
}

// FilterWatchlist keeps items matching the given symbols (case-insensitive).
// An empty symbol list keeps everything.
func FilterWatchlist(items []model.WatchlistItem, symbols []string) []model.WatchlistItem {
	if len(symbols) == 0 {
		return items
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	var out []model.WatchlistItem
	for _, item := range items {
		if _, ok := wanted[strings.ToUpper(item.Symbol)]; ok {
			out = append(out, item)
		}
	}
	return out
}

// IsProviderError reports whether err came from the candle provider
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
