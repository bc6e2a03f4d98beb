package indicator

import (
	internalmath "breakretest-go/internal/math"
	"breakretest-go/internal/model"
)

// breakoutConfirmWindow is the number of candles before a breakout whose mean
// close must sit on the other side of the level
const breakoutConfirmWindow = 5

// FindBreakout scans backward from the newest candle, at most maxRetestCandles
// back, and returns the index of the most recent candle that closed beyond the
// level by more than minBreakoutPct while the preceding candles closed on the
// other side on average.
func FindBreakout(klines []model.Kline, level model.Level, isResistance bool, minBreakoutPct float64, maxRetestCandles int) (int, bool) {
	n := len(klines)
	stop := n - maxRetestCandles
	if stop < 0 {
		stop = 0
	}

	upper := internalmath.AddPercentage(level.Price, minBreakoutPct)
	lower := internalmath.SubtractPercentage(level.Price, minBreakoutPct)

	for i := n - 1; i > stop; i-- {
		prevMean := meanClose(klines[maxInt(0, i-breakoutConfirmWindow):i])

		if isResistance {
			if klines[i].Close > upper && prevMean < level.Price {
				return i, true
			}
			continue
		}

		if klines[i].Close < lower && prevMean > level.Price {
			return i, true
		}
	}

	return -1, false
}

// IsRetest reports whether the newest candle is retesting a level that was
// broken at breakoutIdx. A bullish retest comes back down to a broken
// resistance, a bearish retest comes back up to a broken support. The move
// after the breakout must have exceeded minBreakoutPct away from the level.
func IsRetest(klines []model.Kline, level model.Level, breakoutIdx int, isBullish bool, retestTolerancePct, minBreakoutPct float64) bool {
	n := len(klines)
	if breakoutIdx < 0 || breakoutIdx >= n-1 {
		return false
	}

	current := klines[n-1]
	post := klines[breakoutIdx:]

	if isBullish {
		touching := current.Low <= internalmath.AddPercentage(level.Price, retestTolerancePct) &&
			current.Close >= internalmath.SubtractPercentage(level.Price, retestTolerancePct)
		wentHigher := maxHigh(post) > internalmath.AddPercentage(level.Price, minBreakoutPct)
		return touching && wentHigher
	}

	touching := current.High >= internalmath.SubtractPercentage(level.Price, retestTolerancePct) &&
		current.Close <= internalmath.AddPercentage(level.Price, retestTolerancePct)
	wentLower := minLow(post) < internalmath.SubtractPercentage(level.Price, minBreakoutPct)
	return touching && wentLower
}

func meanClose(klines []model.Kline) float64 {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return internalmath.Mean(closes)
}

func maxHigh(klines []model.Kline) float64 {
	high := klines[0].High
	for _, k := range klines[1:] {
		if k.High > high {
			high = k.High
		}
	}
	return high
}

func minLow(klines []model.Kline) float64 {
	low := klines[0].Low
	for _, k := range klines[1:] {
		if k.Low < low {
			low = k.Low
		}
	}
	return low
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
