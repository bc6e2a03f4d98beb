package service

import (
	"breakretest-go/internal/config"
	"breakretest-go/internal/indicator"
	internalmath "breakretest-go/internal/math"
	"breakretest-go/internal/model"
)

// BreakRetestDetector finds break & retest setups in a candle series:
//  1. pivot highs/lows over a symmetric window
//  2. pivots clustered into resistance/support levels
//  3. the most recent decisive breakout of each level
//  4. a retest of the broken level by the newest candle
type BreakRetestDetector struct {
	profile config.SensitivityProfile
}

func NewBreakRetestDetector(profile config.SensitivityProfile) *BreakRetestDetector {
	return &BreakRetestDetector{profile: profile}
}

// Profile returns the thresholds the detector runs with
func (d *BreakRetestDetector) Profile() config.SensitivityProfile {
	return d.profile
}

// Detect returns every bullish and bearish retest present on the newest
// candle. Series shorter than the profile minimum yield no signals.
func (d *BreakRetestDetector) Detect(klines []model.Kline, symbol, timeframe string) []model.Signal {
	p := d.profile
	if len(klines) < p.MinCandles() {
		return nil
	}

	resistances, supports := indicator.IdentifyLevels(klines, p.PivotLookback, p.LevelTolerancePct, p.MinTouches)

	var signals []model.Signal

	// Broken resistance retested as support
	for _, level := range resistances {
		idx, ok := indicator.FindBreakout(klines, level, true, p.MinBreakoutPct, p.MaxRetestCandles)
		if !ok {
			continue
		}
		if indicator.IsRetest(klines, level, idx, true, p.RetestTolerancePct, p.MinBreakoutPct) {
			signals = append(signals, d.newSignal(klines, symbol, timeframe, model.PatternBullishRetest, level))
		}
	}

	// Broken support retested as resistance
	for _, level := range supports {
		idx, ok := indicator.FindBreakout(klines, level, false, p.MinBreakoutPct, p.MaxRetestCandles)
		if !ok {
			continue
		}
		if indicator.IsRetest(klines, level, idx, false, p.RetestTolerancePct, p.MinBreakoutPct) {
			signals = append(signals, d.newSignal(klines, symbol, timeframe, model.PatternBearishRetest, level))
		}
	}

	return signals
}

func (d *BreakRetestDetector) newSignal(klines []model.Kline, symbol, timeframe string, pattern model.PatternType, level model.Level) model.Signal {
	current := klines[len(klines)-1]

	signal := model.Signal{
		Symbol:             symbol,
		Timeframe:          timeframe,
		PatternType:        pattern,
		LevelPrice:         level.Price,
		CurrentPrice:       current.Close,
		DistanceToLevelPct: internalmath.PercentChange(level.Price, current.Close),
		Timestamp:          current.Time(),
		Strength:           level.Strength,
	}
	signal.Message = formatDetectionMessage(signal)
	return signal
}
