package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"breakretest-go/internal/model"
)

type evaluatorFunc func(ctx context.Context, job model.ScanJob) model.PairResult

func (f evaluatorFunc) EvaluatePair(ctx context.Context, job model.ScanJob) model.PairResult {
	return f(ctx, job)
}

func TestPoolEvaluatesEveryJob(t *testing.T) {
	var calls atomic.Int32
	eval := evaluatorFunc(func(ctx context.Context, job model.ScanJob) model.PairResult {
		calls.Add(1)
		return model.PairResult{Job: job, Candles: job.Seq}
	})

	// more jobs than the channel buffers hold
	const n = 250
	pool := NewPool(context.Background(), 4, eval)
	pool.Start()
	for i := 0; i < n; i++ {
		pool.AddJob(model.ScanJob{Seq: i, Symbol: "BTCUSDT", Timeframe: "1h"})
	}
	results := pool.Wait()

	if len(results) != n || calls.Load() != n {
		t.Fatalf("got %d results and %d calls, want %d", len(results), calls.Load(), n)
	}

	seen := make(map[int]bool, n)
	for _, r := range results {
		if r.Candles != r.Job.Seq {
			t.Fatalf("result mismatched with job %+v", r)
		}
		seen[r.Job.Seq] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct jobs, got %d", n, len(seen))
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	eval := evaluatorFunc(func(ctx context.Context, job model.ScanJob) model.PairResult {
		if job.Symbol == "BAD" {
			panic("boom")
		}
		return model.PairResult{Job: job}
	})

	pool := NewPool(context.Background(), 2, eval)
	pool.Start()
	pool.AddJob(model.ScanJob{Seq: 0, Symbol: "BTCUSDT"})
	pool.AddJob(model.ScanJob{Seq: 1, Symbol: "BAD"})
	pool.AddJob(model.ScanJob{Seq: 2, Symbol: "ETHUSDT"})
	results := pool.Wait()

	if len(results) != 3 {
		t.Fatalf("expected 3 results got %d", len(results))
	}
	for _, r := range results {
		if (r.Err != nil) != (r.Job.Symbol == "BAD") {
			t.Fatalf("unexpected error state for %s: %v", r.Job.Symbol, r.Err)
		}
	}
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval := evaluatorFunc(func(ctx context.Context, job model.ScanJob) model.PairResult {
		t.Errorf("evaluator called for %s after cancel", job.Symbol)
		return model.PairResult{Job: job}
	})

	pool := NewPool(ctx, 0, eval)
	pool.Start()
	pool.AddJob(model.ScanJob{Symbol: "BTCUSDT"})
	results := pool.Wait()

	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("expected cancelled result, got %+v", results)
	}
}
