package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"breakretest-go/internal/config"
	"breakretest-go/internal/model"
	"breakretest-go/internal/service"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "symbol to evaluate")
	timeframe := flag.String("timeframe", "1h", "candle interval")
	sensitivity := flag.String("sensitivity", config.SensitivityMedium, "low, medium or high")
	flag.Parse()

	cfg := config.Load()

	profile, err := config.ParseSensitivity(*sensitivity)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Println("🧪 Starting Detector Verification...")

	binanceService := service.NewBinanceService(cfg.BinanceBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	limit := cfg.CandleLimit
	if limit < profile.MinCandles() {
		limit = profile.MinCandles()
	}

	log.Printf("🔍 Evaluating %s %s (%s, %d candles)...", *symbol, *timeframe, profile.Name, limit)
	klines, err := binanceService.GetKlines(ctx, *symbol, *timeframe, limit)
	if err != nil {
		log.Fatalf("❌ Error fetching klines: %v", err)
	}

	signals := service.NewBreakRetestDetector(profile).Detect(klines, *symbol, *timeframe)
	if len(signals) == 0 {
		log.Printf("⚠️  No signal generated (%d candles, conditions not met)", len(klines))
		return
	}

	// Print JSON for inspection
	jsonData, _ := json.MarshalIndent(signals, "", "  ")
	fmt.Println(string(jsonData))

	fmt.Println("\n✅ Verification Successful!")
	for _, s := range signals {
		fmt.Printf("%s: level %s | price %s | distance %.2f%% | touches %d\n",
			directionLabel(s.PatternType), service.FormatPrice(s.LevelPrice), service.FormatPrice(s.CurrentPrice),
			s.DistanceToLevelPct, s.Strength)
	}
}

func directionLabel(p model.PatternType) string {
	if p == model.PatternBullishRetest {
		return "BULLISH"
	}
	return "BEARISH"
}
