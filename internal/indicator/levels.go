package indicator

import (
	"sort"
	"time"

	internalmath "breakretest-go/internal/math"
	"breakretest-go/internal/model"
)

// ClusterLevels groups pivots into support/resistance levels in a single
// greedy pass over the pivots in time order. Each unassigned pivot seeds a
// cluster that absorbs every later unassigned pivot within tolerancePct of the
// seed price. Tolerance is anchored on the seed, not on the running mean, so
// the result depends on pivot order.
func ClusterLevels(pivots []model.PivotPoint, tolerancePct float64, minTouches int) []model.Level {
	if len(pivots) == 0 {
		return nil
	}

	used := make([]bool, len(pivots))
	var levels []model.Level

	for i, seed := range pivots {
		if used[i] {
			continue
		}
		used[i] = true
		if seed.Price <= 0 {
			continue
		}

		prices := []float64{seed.Price}
		first, last := seed.Time, seed.Time

		for j := i + 1; j < len(pivots); j++ {
			if used[j] {
				continue
			}
			if internalmath.PercentDistance(seed.Price, pivots[j].Price) <= tolerancePct {
				used[j] = true
				prices = append(prices, pivots[j].Price)
				first = minTime(first, pivots[j].Time)
				last = maxTime(last, pivots[j].Time)
			}
		}

		if len(prices) >= minTouches {
			levels = append(levels, model.Level{
				Price:      internalmath.Mean(prices),
				Strength:   len(prices),
				FirstTouch: first,
				LastTouch:  last,
			})
		}
	}

	sort.SliceStable(levels, func(a, b int) bool {
		return levels[a].Price < levels[b].Price
	})

	return levels
}

// IdentifyLevels clusters pivot highs into resistances and pivot lows into supports
func IdentifyLevels(klines []model.Kline, lookback int, tolerancePct float64, minTouches int) (resistances, supports []model.Level) {
	resistances = ClusterLevels(internalmath.FindPivotHighs(klines, lookback), tolerancePct, minTouches)
	supports = ClusterLevels(internalmath.FindPivotLows(klines, lookback), tolerancePct, minTouches)
	return resistances, supports
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
