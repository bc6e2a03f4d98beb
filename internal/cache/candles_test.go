package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"breakretest-go/internal/model"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []model.Kline{
		{OpenTime: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, CloseTime: 2},
		{OpenTime: 3, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12, CloseTime: 4},
	}, nil
}

func TestCandleCacheMissThenHit(t *testing.T) {
	kv := newMemKV()
	provider := &countingProvider{}
	c := &CandleCache{provider: provider, store: kv, ttl: 30 * time.Second}
	ctx := context.Background()

	first, err := c.GetKlines(ctx, "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatal(err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d", provider.calls)
	}
	if kv.ttls["candles:BTCUSDT:1h:500"] != 30*time.Second {
		t.Fatalf("cache not written with ttl: %v", kv.ttls)
	}

	second, err := c.GetKlines(ctx, "BTCUSDT", "1h", 500)
	if err != nil {
		t.Fatal(err)
	}
	if provider.calls != 1 {
		t.Fatalf("cache hit still called provider (%d calls)", provider.calls)
	}
	if len(second) != len(first) || second[1] != first[1] {
		t.Fatalf("cached series differs: %+v vs %+v", second, first)
	}

	// a different limit is a different key
	if _, err := c.GetKlines(ctx, "BTCUSDT", "1h", 100); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d", provider.calls)
	}
}

func TestCandleCacheFallsThrough(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("connection refused")
	provider := &countingProvider{}
	c := &CandleCache{provider: provider, store: kv, ttl: time.Second}

	klines, err := c.GetKlines(context.Background(), "ETHUSDT", "4h", 50)
	if err != nil || len(klines) != 2 {
		t.Fatalf("expected provider data on cache error, got %v, %v", klines, err)
	}
}

func TestCandleCacheProviderError(t *testing.T) {
	kv := newMemKV()
	provider := &countingProvider{err: errors.New("rate limited")}
	c := &CandleCache{provider: provider, store: kv, ttl: time.Second}

	if _, err := c.GetKlines(context.Background(), "ETHUSDT", "4h", 50); err == nil {
		t.Fatal("expected provider error")
	}
	if len(kv.data) != 0 {
		t.Fatal("failed fetch must not be cached")
	}
}
