package math

import "breakretest-go/internal/model"

// FindPivotHighs returns every index whose high is strictly greater than the
// highs of the lookback candles on each side. Only interior indices
// (lookback <= i < n-lookback) are evaluated.
func FindPivotHighs(klines []model.Kline, lookback int) []model.PivotPoint {
	return findPivots(klines, lookback, model.PivotHigh)
}

// FindPivotLows is the strict-less-than mirror of FindPivotHighs
func FindPivotLows(klines []model.Kline, lookback int) []model.PivotPoint {
	return findPivots(klines, lookback, model.PivotLow)
}

func findPivots(klines []model.Kline, lookback int, kind model.PivotKind) []model.PivotPoint {
	if lookback < 1 || len(klines) < 2*lookback+1 {
		return nil
	}

	price := func(k model.Kline) float64 {
		if kind == model.PivotHigh {
			return k.High
		}
		return k.Low
	}

	var pivots []model.PivotPoint
	for i := lookback; i < len(klines)-lookback; i++ {
		center := price(klines[i])
		isPivot := true

		for j := 1; j <= lookback; j++ {
			left, right := price(klines[i-j]), price(klines[i+j])
			if kind == model.PivotHigh && (center <= left || center <= right) {
				isPivot = false
				break
			}
			if kind == model.PivotLow && (center >= left || center >= right) {
				isPivot = false
				break
			}
		}

		if isPivot {
			pivots = append(pivots, model.PivotPoint{
				Index: i,
				Time:  klines[i].Time(),
				Price: center,
				Kind:  kind,
			})
		}
	}

	return pivots
}
