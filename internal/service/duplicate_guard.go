package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"breakretest-go/internal/model"

	"github.com/shopspring/decimal"
)

const (
	DefaultDuplicateWindow = 24 * time.Hour
	DefaultPriceTolerance  = 0.005 // 0.5% = same level
)

// DuplicateGuard suppresses re-alerting on a level that was already signaled
// for the same user, symbol, timeframe and pattern.
type DuplicateGuard struct {
	store     SignalStore
	window    time.Duration
	tolerance float64
	now       func() time.Time
}

func NewDuplicateGuard(store SignalStore, window time.Duration, tolerance float64) *DuplicateGuard {
	return &DuplicateGuard{
		store:     store,
		window:    window,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (g *DuplicateGuard) SetClock(now func() time.Time) {
	g.now = now
}

// Window returns the suppression window
func (g *DuplicateGuard) Window() time.Duration {
	return g.window
}

// Exists reports whether a similar signal was stored within the window
func (g *DuplicateGuard) Exists(ctx context.Context, userID int64, symbol, timeframe string, pattern model.PatternType, levelPrice float64) (bool, error) {
	query := model.SimilarSignalQuery{
		UserID:      userID,
		Symbol:      symbol,
		Timeframe:   timeframe,
		PatternType: pattern,
		PriceLow:    levelPrice * (1 - g.tolerance),
		PriceHigh:   levelPrice * (1 + g.tolerance),
		Since:       g.now().Add(-g.window),
	}

	exists, err := g.store.ExistsSimilar(ctx, query)
	if err != nil {
		return false, &PersistenceError{Op: "exists_similar", Err: err}
	}
	return exists, nil
}

// PurgeDuplicates removes stored duplicates for a user regardless of age.
// Signals are grouped by symbol, timeframe, pattern and level rounded to two
// decimals; the earliest created signal of each group is kept.
func (g *DuplicateGuard) PurgeDuplicates(ctx context.Context, userID int64) (int, error) {
	results, err := g.store.ListSignals(ctx, model.SignalFilter{UserID: userID})
	if err != nil {
		return 0, &PersistenceError{Op: "list_signals", Err: err}
	}

	seen := make(map[string]struct{}, len(results))
	var duplicates []string

	for _, r := range results {
		key := duplicateKey(r)
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, r.ID)
			continue
		}
		seen[key] = struct{}{}
	}

	if len(duplicates) == 0 {
		return 0, nil
	}

	deleted, err := g.store.DeleteSignals(ctx, model.SignalFilter{UserID: userID, IDs: duplicates})
	if err != nil {
		return 0, &PersistenceError{Op: "delete_signals", Err: err}
	}

	log.Printf("🧹 [DuplicateGuard] Removed %d duplicate signals for user %d", deleted, userID)
	return int(deleted), nil
}

func duplicateKey(r model.ScanResult) string {
	rounded := decimal.NewFromFloat(r.LevelPrice).RoundBank(2)
	return fmt.Sprintf("%s|%s|%s|%s", r.Symbol, r.Timeframe, r.PatternType, rounded.StringFixed(2))
}
