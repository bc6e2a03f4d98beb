package monitor

import (
	"context"
	"testing"
	"time"

	"breakretest-go/internal/model"
	"breakretest-go/internal/service"
)

func insert(t *testing.T, store *service.MemoryStore, id string, userID int64, level float64, age time.Duration) {
	t.Helper()
	err := store.InsertSignal(context.Background(), &model.ScanResult{
		ID:     id,
		UserID: userID,
		Signal: model.Signal{
			Symbol:      "BTCUSDT",
			Timeframe:   "1h",
			PatternType: model.PatternBullishRetest,
			LevelPrice:  level,
		},
		CreatedAt: time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := service.NewMemoryStore()
	guard := service.NewDuplicateGuard(store, 24*time.Hour, 0.005)
	scanner := service.NewScannerService(nil, store, guard, 500)

	_ = store.AddSymbol(ctx, 1, "BTCUSDT", []string{"1h"})
	_ = store.AddSymbol(ctx, 2, "BTCUSDT", []string{"1h"})

	insert(t, store, "old", 1, 90, 10*24*time.Hour)
	insert(t, store, "a", 1, 100, 3*time.Hour)
	insert(t, store, "b", 1, 100.001, 2*time.Hour)
	insert(t, store, "c", 2, 100, time.Hour)
	insert(t, store, "d", 2, 100, 30*time.Minute)
	insert(t, store, "orphan", 3, 100, 20*24*time.Hour)

	report := NewRetentionMonitor(scanner, store, 7).Sweep(ctx)
	if report.Users != 2 || report.ExpiredDeleted != 1 || report.DuplicatesRemoved != 2 || report.Errors != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	left, _ := store.ListSignals(ctx, model.SignalFilter{})
	ids := make(map[string]bool)
	for _, r := range left {
		ids[r.ID] = true
	}
	// users without an active watchlist are not swept
	if len(left) != 3 || !ids["a"] || !ids["c"] || !ids["orphan"] {
		t.Fatalf("unexpected survivors %v", ids)
	}
}

func TestSweepKeepsResultsWithoutRetention(t *testing.T) {
	ctx := context.Background()
	store := service.NewMemoryStore()
	scanner := service.NewScannerService(nil, store, service.NewDuplicateGuard(store, time.Hour, 0.005), 500)

	_ = store.AddSymbol(ctx, 1, "BTCUSDT", nil)
	insert(t, store, "old", 1, 90, 400*24*time.Hour)

	report := NewRetentionMonitor(scanner, store, 0).Sweep(ctx)
	if report.ExpiredDeleted != 0 || report.DuplicatesRemoved != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	store := service.NewMemoryStore()
	scanner := service.NewScannerService(nil, store, service.NewDuplicateGuard(store, time.Hour, 0.005), 500)
	rm := NewRetentionMonitor(scanner, store, 7)

	if err := rm.Start("not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if err := rm.Start("@daily"); err != nil {
		t.Fatal(err)
	}
	rm.Stop()
	rm.Stop()
}
