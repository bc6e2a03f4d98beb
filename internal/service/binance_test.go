package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBinanceGetKlines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[1700000000000, "100.0", "101.5", "99.5", "101.0", "12.5", 1700003599999, "0", 10, "0", "0", "0"],
			[1700003600000, "101.0", "100.0", "99.0", "100.5", "3.0", 1700007199999, "0", 10, "0", "0", "0"],
			[1700007200000, "100.5", "102.0", "100.1", "101.8", "8.0", 1700010799999, "0", 10, "0", "0", "0"]
		]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	klines, err := NewBinanceService(srv.URL).GetKlines(context.Background(), "btcusdt", "1h", 3)
	if err != nil {
		t.Fatal(err)
	}

	// the second row has high below open and is dropped
	if len(klines) != 2 {
		t.Fatalf("expected 2 klines got %d", len(klines))
	}
	k := klines[0]
	if k.OpenTime != 1700000000000 || k.Open != 100 || k.High != 101.5 || k.Low != 99.5 || k.Close != 101 || k.Volume != 12.5 {
		t.Fatalf("unexpected kline %+v", k)
	}
	if klines[1].OpenTime != 1700007200000 {
		t.Fatalf("unexpected second kline %+v", klines[1])
	}
}

func TestBinanceGetKlinesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := NewBinanceService(srv.URL).GetKlines(context.Background(), "NOPE", "1h", 10); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestBinanceGetKlinesCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewBinanceService(srv.URL).GetKlines(ctx, "BTCUSDT", "1h", 10); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
