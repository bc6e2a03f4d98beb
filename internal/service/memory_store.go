package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"breakretest-go/internal/model"
)

// MemoryStore keeps signals, executions and watchlists in process memory.
// Used with STORE_DRIVER=memory and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	signals    []model.ScanResult
	executions []model.ScanExecution
	watchlist  []model.WatchlistItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertSignal(ctx context.Context, result *model.ScanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, *result)
	return nil
}

func (m *MemoryStore) ExistsSimilar(ctx context.Context, q model.SimilarSignalQuery) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.signals {
		if s.UserID != q.UserID || s.Symbol != q.Symbol || s.Timeframe != q.Timeframe || s.PatternType != q.PatternType {
			continue
		}
		if s.LevelPrice < q.PriceLow || s.LevelPrice > q.PriceHigh {
			continue
		}
		if s.CreatedAt.Before(q.Since) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *MemoryStore) InsertExecution(ctx context.Context, execution *model.ScanExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, *execution)
	return nil
}

func (m *MemoryStore) ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.ScanResult, error) {
	m.mu.RLock()
	var out []model.ScanResult
	for _, s := range m.signals {
		if matchesFilter(s, filter) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if filter.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(out) {
			return []model.ScanResult{}, nil
		}
		out = out[filter.Skip:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, s := range m.signals {
		if matchesFilter(s, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.signals[:0]
	var deleted int64
	for _, s := range m.signals {
		if matchesFilter(s, filter) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	m.signals = kept
	return deleted, nil
}

func (m *MemoryStore) LastExecution(ctx context.Context, userID int64) (*model.ScanExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *model.ScanExecution
	for i := range m.executions {
		e := m.executions[i]
		if e.UserID != userID {
			continue
		}
		if last == nil || !e.CreatedAt.Before(last.CreatedAt) {
			last = &e
		}
	}
	return last, nil
}

func (m *MemoryStore) CountExecutions(ctx context.Context, userID int64, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.executions {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Executions returns a copy of every recorded execution
func (m *MemoryStore) Executions() []model.ScanExecution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ScanExecution(nil), m.executions...)
}

// ListActive implements WatchlistReader
func (m *MemoryStore) ListActive(ctx context.Context, userID int64) ([]model.WatchlistItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.WatchlistItem
	for _, item := range m.watchlist {
		if !item.IsActive {
			continue
		}
		if userID != 0 && item.UserID != userID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// AddSymbol adds or reactivates a watchlist entry
func (m *MemoryStore) AddSymbol(ctx context.Context, userID int64, symbol string, timeframes []string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.watchlist {
		if m.watchlist[i].UserID == userID && m.watchlist[i].Symbol == symbol {
			m.watchlist[i].Timeframes = append([]string(nil), timeframes...)
			m.watchlist[i].IsActive = true
			return nil
		}
	}

	m.watchlist = append(m.watchlist, model.WatchlistItem{
		ID:         uint(len(m.watchlist) + 1),
		UserID:     userID,
		Symbol:     symbol,
		Timeframes: append([]string(nil), timeframes...),
		IsActive:   true,
		AddedAt:    time.Now().UTC(),
	})
	return nil
}

// RemoveSymbol deactivates a watchlist entry
func (m *MemoryStore) RemoveSymbol(ctx context.Context, userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.watchlist {
		if m.watchlist[i].UserID == userID && m.watchlist[i].Symbol == symbol {
			m.watchlist[i].IsActive = false
		}
	}
	return nil
}

func matchesFilter(s model.ScanResult, f model.SignalFilter) bool {
	if f.UserID != 0 && s.UserID != f.UserID {
		return false
	}
	if f.PatternType != "" && s.PatternType != f.PatternType {
		return false
	}
	if !f.CreatedBefore.IsZero() && !s.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	if !f.CreatedSince.IsZero() && s.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if id == s.ID {
				return true
			}
		}
		return false
	}
	return true
}

// SeedDefaults adds default symbols for a user if the watchlist is empty
func (m *MemoryStore) SeedDefaults(ctx context.Context, userID int64, symbols, timeframes []string) error {
	if userID == 0 || len(symbols) == 0 {
		return nil
	}

	m.mu.RLock()
	empty := len(m.watchlist) == 0
	m.mu.RUnlock()
	if !empty {
		return nil
	}

	for _, s := range symbols {
		if err := m.AddSymbol(ctx, userID, s, timeframes); err != nil {
			return err
		}
	}
	return nil
}
