package indicator

import (
	"math"
	"testing"
	"time"

	"breakretest-go/internal/model"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func pivotsAt(prices ...float64) []model.PivotPoint {
	out := make([]model.PivotPoint, len(prices))
	for i, p := range prices {
		out[i] = model.PivotPoint{Index: i * 10, Time: t0.Add(time.Duration(i) * time.Hour), Price: p, Kind: model.PivotHigh}
	}
	return out
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClusterLevels(t *testing.T) {
	levels := ClusterLevels(pivotsAt(100, 100.2, 105, 99.9, 105.1), 0.3, 2)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels got %d", len(levels))
	}

	if !near(levels[0].Price, (100+100.2+99.9)/3) || levels[0].Strength != 3 {
		t.Fatalf("unexpected first level %+v", levels[0])
	}
	if !levels[0].FirstTouch.Equal(t0) || !levels[0].LastTouch.Equal(t0.Add(3*time.Hour)) {
		t.Fatalf("unexpected touch times %v .. %v", levels[0].FirstTouch, levels[0].LastTouch)
	}
	if !near(levels[1].Price, 105.05) || levels[1].Strength != 2 {
		t.Fatalf("unexpected second level %+v", levels[1])
	}
}

func TestClusterLevelsSortedByPrice(t *testing.T) {
	levels := ClusterLevels(pivotsAt(200, 50, 200, 50, 120, 120), 0.1, 2)
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels got %d", len(levels))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i-1].Price >= levels[i].Price {
			t.Fatalf("levels not ascending: %v then %v", levels[i-1].Price, levels[i].Price)
		}
	}
}

func TestClusterLevelsSeedAnchored(t *testing.T) {
	// 100.35 is within 0.3% of the running mean but not of the seed
	levels := ClusterLevels(pivotsAt(100, 100.29, 100.35), 0.3, 2)
	if len(levels) != 1 {
		t.Fatalf("expected 1 level got %d", len(levels))
	}
	if levels[0].Strength != 2 || !near(levels[0].Price, 100.145) {
		t.Fatalf("unexpected level %+v", levels[0])
	}
}

func TestClusterLevelsMinTouches(t *testing.T) {
	tests := []struct {
		name       string
		minTouches int
		want       int
	}{
		{"single touches allowed", 1, 3},
		{"pairs", 2, 1},
		{"triples", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClusterLevels(pivotsAt(10, 10.01, 20, 30), 0.5, tt.minTouches)
			if len(got) != tt.want {
				t.Fatalf("expected %d levels got %d", tt.want, len(got))
			}
		})
	}
}

func TestClusterLevelsSkipsNonPositiveSeeds(t *testing.T) {
	levels := ClusterLevels(pivotsAt(0, 0, -1, -1), 0.5, 1)
	if len(levels) != 0 {
		t.Fatalf("expected no levels got %+v", levels)
	}
	if got := ClusterLevels(nil, 0.5, 1); got != nil {
		t.Fatalf("expected nil for no pivots")
	}
}

func TestReclusterWithZeroToleranceKeepsCentroids(t *testing.T) {
	levels := ClusterLevels(pivotsAt(100, 100.2, 105, 99.9, 105.1, 80, 80.1), 0.3, 2)

	prices := make([]float64, len(levels))
	for i, l := range levels {
		prices[i] = l.Price
	}

	again := ClusterLevels(pivotsAt(prices...), 0, 1)
	if len(again) != len(levels) {
		t.Fatalf("expected %d levels got %d", len(levels), len(again))
	}
	for i := range again {
		if again[i].Price != levels[i].Price || again[i].Strength != 1 {
			t.Fatalf("level %d changed: %+v vs %+v", i, again[i], levels[i])
		}
	}
}
