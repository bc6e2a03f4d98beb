package service

import (
	"fmt"

	"breakretest-go/internal/model"
)

// CalculateDynamicDecimals picks enough decimals to show meaningful digits of small prices
func CalculateDynamicDecimals(price float64) int {
	if price < 0.00001 {
		return 8
	} else if price < 0.0001 {
		return 7
	} else if price < 0.001 {
		return 6
	} else if price < 0.01 {
		return 5
	}
	return 4
}

func FormatPrice(price float64) string {
	decimals := CalculateDynamicDecimals(price)
	format := fmt.Sprintf("%%.%df", decimals)
	return fmt.Sprintf(format, price)
}

// formatDetectionMessage is the plain-text summary stored with every signal
func formatDetectionMessage(s model.Signal) string {
	if s.PatternType == model.PatternBullishRetest {
		return fmt.Sprintf("🟢 BULLISH RETEST on %s (%s)\n"+
			"Level: %s\n"+
			"Current price: %s\n"+
			"Level strength: %d touches\n"+
			"Action: BUY on retest of broken resistance",
			s.Symbol, s.Timeframe, FormatPrice(s.LevelPrice), FormatPrice(s.CurrentPrice), s.Strength)
	}

	return fmt.Sprintf("🔴 BEARISH RETEST on %s (%s)\n"+
		"Level: %s\n"+
		"Current price: %s\n"+
		"Level strength: %d touches\n"+
		"Action: SELL on retest of broken support",
		s.Symbol, s.Timeframe, FormatPrice(s.LevelPrice), FormatPrice(s.CurrentPrice), s.Strength)
}

// confidenceFromStrength normalizes level strength into a 0..1 style score
func confidenceFromStrength(strength int) float64 {
	return float64(strength) / 10.0
}
