package indicator

import (
	"testing"

	"breakretest-go/internal/model"
)

func flatSeries(n int, price float64) []model.Kline {
	out := make([]model.Kline, n)
	for i := range out {
		out[i] = model.Kline{OpenTime: int64(i) * 3_600_000, Open: price, High: price, Low: price, Close: price}
	}
	return out
}

func set(c []model.Kline, i int, o, h, l, cl float64) {
	c[i].Open, c[i].High, c[i].Low, c[i].Close = o, h, l, cl
}

var level100 = model.Level{Price: 100, Strength: 3}

func TestFindBreakoutResistance(t *testing.T) {
	c := flatSeries(20, 99)
	set(c, 15, 99, 101.2, 99, 101)

	idx, ok := FindBreakout(c, level100, true, 0.5, 10)
	if !ok || idx != 15 {
		t.Fatalf("expected breakout at 15, got %d %v", idx, ok)
	}
}

func TestFindBreakoutSupport(t *testing.T) {
	c := flatSeries(20, 101)
	set(c, 15, 101, 101, 98.8, 99)

	idx, ok := FindBreakout(c, level100, false, 0.5, 10)
	if !ok || idx != 15 {
		t.Fatalf("expected breakout at 15, got %d %v", idx, ok)
	}
}

func TestFindBreakoutOutsideWindow(t *testing.T) {
	c := flatSeries(20, 99)
	set(c, 15, 99, 101.2, 99, 101)

	if idx, ok := FindBreakout(c, level100, true, 0.5, 4); ok {
		t.Fatalf("breakout at %d is older than the scan window", idx)
	}
}

func TestFindBreakoutNeedsPriorCloses(t *testing.T) {
	c := flatSeries(20, 99)
	for i := 10; i <= 14; i++ {
		set(c, i, 101, 101, 101, 101)
	}
	set(c, 15, 101, 102, 101, 102)

	// 15, 14 and 13 have prior means above the level; 12 is the latest
	// candle whose preceding closes averaged below it
	idx, ok := FindBreakout(c, level100, true, 0.5, 15)
	if !ok || idx != 12 {
		t.Fatalf("expected breakout at 12, got %d %v", idx, ok)
	}
}

func TestFindBreakoutRequiresMinMove(t *testing.T) {
	c := flatSeries(20, 99)
	set(c, 15, 99, 100.5, 99, 100.4)

	if _, ok := FindBreakout(c, level100, true, 0.5, 10); ok {
		t.Fatal("close within min breakout distance counted as breakout")
	}
}

func bullishRetestSeries() []model.Kline {
	c := flatSeries(20, 99)
	set(c, 15, 99, 101.5, 99, 101)
	for i := 16; i <= 18; i++ {
		set(c, i, 101, 101.2, 100.9, 101)
	}
	set(c, 19, 101, 101, 100.3, 100.6)
	return c
}

func TestIsRetestBullish(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c []model.Kline)
		breakout int
		minMove  float64
		want     bool
	}{
		{"retest of broken resistance", nil, 15, 0.5, true},
		{"breakout on newest candle", nil, 19, 0.5, false},
		{"low never reaches the level", func(c []model.Kline) { set(c, 19, 101, 101, 100.7, 100.8) }, 15, 0.5, false},
		{"close falls through the level", func(c []model.Kline) { set(c, 19, 101, 101, 99, 99.4) }, 15, 0.5, false},
		{"excursion too small", nil, 15, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bullishRetestSeries()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			if got := IsRetest(c, level100, tt.breakout, true, 0.5, tt.minMove); got != tt.want {
				t.Fatalf("IsRetest = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetestBearish(t *testing.T) {
	c := flatSeries(20, 101)
	set(c, 15, 101, 101, 98.5, 99)
	for i := 16; i <= 18; i++ {
		set(c, i, 99, 99.1, 98.8, 99)
	}
	set(c, 19, 99, 99.7, 99, 99.4)

	if !IsRetest(c, level100, 15, false, 0.5, 0.5) {
		t.Fatal("expected bearish retest")
	}

	// high stays too far below the level
	set(c, 19, 99, 99.3, 99, 99.2)
	if IsRetest(c, level100, 15, false, 0.5, 0.5) {
		t.Fatal("unexpected bearish retest")
	}
}
