package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"breakretest-go/internal/config"
	"breakretest-go/internal/model"
)

type fakeProvider struct {
	series map[string][]model.Kline
	errs   map[string]error
	limits []int
}

func (f *fakeProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	f.limits = append(f.limits, limit)
	key := symbol + "|" + interval
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.series[key], nil
}

func newTestScanner(provider CandleProvider, store *MemoryStore) *ScannerService {
	s := NewScannerService(provider, store, newTestGuard(store), 500)
	s.SetClock(func() time.Time { return guardNow })
	return s
}

func TestEvaluatePair(t *testing.T) {
	provider := &fakeProvider{
		series: map[string][]model.Kline{
			"BTCUSDT|1h": resistanceSeries(true),
			"ETHUSDT|1h": flatKlines(30, 10),
		},
		errs: map[string]error{"XRPUSDT|1h": errors.New("boom")},
	}
	s := newTestScanner(provider, NewMemoryStore())
	ctx := context.Background()

	got := s.EvaluatePair(ctx, model.ScanJob{Symbol: "BTCUSDT", Timeframe: "1h", Sensitivity: config.SensitivityMedium})
	if got.Err != nil || got.InsufficientData || len(got.Signals) != 1 || got.Candles != 600 {
		t.Fatalf("unexpected result %+v", got)
	}

	got = s.EvaluatePair(ctx, model.ScanJob{Symbol: "ETHUSDT", Timeframe: "1h", Sensitivity: config.SensitivityMedium})
	if got.Err != nil || !got.InsufficientData || len(got.Signals) != 0 {
		t.Fatalf("short series should be insufficient, got %+v", got)
	}

	got = s.EvaluatePair(ctx, model.ScanJob{Symbol: "XRPUSDT", Timeframe: "1h", Sensitivity: config.SensitivityMedium})
	var pe *ProviderError
	if !errors.As(got.Err, &pe) || pe.Symbol != "XRPUSDT" || !IsProviderError(got.Err) {
		t.Fatalf("expected provider error, got %v", got.Err)
	}

	for _, limit := range provider.limits {
		if limit != 500 {
			t.Fatalf("requested %d candles, want 500", limit)
		}
	}
}

func TestStoreSignalSuppressesDuplicates(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScanner(&fakeProvider{}, store)
	ctx := context.Background()

	sig := model.Signal{Symbol: "BTCUSDT", Timeframe: "1h", PatternType: model.PatternBullishRetest, LevelPrice: 100, CurrentPrice: 100.3, Strength: 3}

	first, outcome, err := s.StoreSignal(ctx, 1, sig)
	if err != nil || outcome != OutcomeStored {
		t.Fatalf("first store: %v %v", outcome, err)
	}
	if first.ID == "" || first.ConfidenceScore != 0.3 || !first.IsMatch || !first.CreatedAt.Equal(guardNow) {
		t.Fatalf("unexpected stored result %+v", first)
	}

	sig.LevelPrice = 100.2
	if _, outcome, _ := s.StoreSignal(ctx, 1, sig); outcome != OutcomeDuplicate {
		t.Fatalf("second store outcome = %v, want duplicate", outcome)
	}

	// another user has its own history
	if _, outcome, _ := s.StoreSignal(ctx, 2, sig); outcome != OutcomeStored {
		t.Fatalf("other user outcome = %v, want stored", outcome)
	}

	if n, _ := store.CountSignals(ctx, model.SignalFilter{}); n != 2 {
		t.Fatalf("stored %d signals, want 2", n)
	}
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) InsertSignal(ctx context.Context, result *model.ScanResult) error {
	return errors.New("disk full")
}

func TestStoreSignalPersistenceFailure(t *testing.T) {
	store := failingStore{NewMemoryStore()}
	s := NewScannerService(&fakeProvider{}, store, NewDuplicateGuard(store, time.Hour, 0.005), 500)

	_, outcome, err := s.StoreSignal(context.Background(), 1, model.Signal{Symbol: "BTCUSDT", Timeframe: "1h", PatternType: model.PatternBullishRetest, LevelPrice: 1})
	var pe *PersistenceError
	if outcome != OutcomeFailed || !errors.As(err, &pe) || pe.Op != "insert_signal" {
		t.Fatalf("expected persistence failure, got %v %v", outcome, err)
	}
}

func TestGetResultsAndClear(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScanner(&fakeProvider{}, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		pattern := model.PatternBullishRetest
		if i%2 == 1 {
			pattern = model.PatternBearishRetest
		}
		r := storedResult(fmt.Sprintf("r%d", i), 1, "BTCUSDT", "1h", pattern, float64(100+i), guardNow.Add(-time.Duration(i)*48*time.Hour))
		if err := store.InsertSignal(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := s.GetResults(ctx, 1, "", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != "r1" || page[1].ID != "r2" {
		t.Fatalf("unexpected page %v total %d", page, total)
	}

	bearish, total, _ := s.GetResults(ctx, 1, model.PatternBearishRetest, 0, 50)
	if total != 2 || len(bearish) != 2 {
		t.Fatalf("expected 2 bearish results, got %d/%d", len(bearish), total)
	}

	// r3 (6 days) and r4 (8 days) are older than 5 days
	deleted, err := s.ClearOldResults(ctx, 1, 5)
	if err != nil || deleted != 2 {
		t.Fatalf("deleted %d, err %v", deleted, err)
	}

	deleted, _ = s.ClearOldResults(ctx, 1, 0)
	if deleted != 3 {
		t.Fatalf("clear all deleted %d, want 3", deleted)
	}
}

func TestUserStatus(t *testing.T) {
	store := NewMemoryStore()
	s := newTestScanner(&fakeProvider{}, store)
	ctx := context.Background()

	_ = store.AddSymbol(ctx, 1, "btcusdt", []string{"1h"})
	_ = store.AddSymbol(ctx, 1, "ETHUSDT", []string{"1h", "4h"})
	_ = store.AddSymbol(ctx, 2, "SOLUSDT", nil)

	_ = store.InsertSignal(ctx, storedResult("today", 1, "BTCUSDT", "1h", model.PatternBullishRetest, 100, guardNow.Add(-time.Hour)))
	_ = store.InsertSignal(ctx, storedResult("old", 1, "BTCUSDT", "1h", model.PatternBullishRetest, 90, guardNow.Add(-36*time.Hour)))

	if err := s.RecordExecution(ctx, &model.ScanExecution{UserID: 1, CreatedAt: guardNow.Add(-2 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordExecution(ctx, &model.ScanExecution{UserID: 1, CreatedAt: guardNow.Add(-30 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	status, err := s.UserStatus(ctx, 1, store)
	if err != nil {
		t.Fatal(err)
	}
	if status.SymbolsMonitored != 2 || status.ScansToday != 1 || status.SignalsToday != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LastScan == nil || !status.LastScan.Equal(guardNow.Add(-2*time.Hour)) {
		t.Fatalf("last scan = %v", status.LastScan)
	}
}

func TestFilterWatchlist(t *testing.T) {
	items := []model.WatchlistItem{{Symbol: "BTCUSDT"}, {Symbol: "ETHUSDT"}, {Symbol: "SOLUSDT"}}

	if got := FilterWatchlist(items, nil); len(got) != 3 {
		t.Fatalf("empty filter kept %d", len(got))
	}
	got := FilterWatchlist(items, []string{"ethusdt", " solusdt "})
	if len(got) != 2 || got[0].Symbol != "ETHUSDT" || got[1].Symbol != "SOLUSDT" {
		t.Fatalf("unexpected filter result %+v", got)
	}
}
