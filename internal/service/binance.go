package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"breakretest-go/internal/model"
)

// BinanceService is the spot market CandleProvider
type BinanceService struct {
	baseURL string
	client  *http.Client
}

func NewBinanceService(baseURL string) *BinanceService {
	return &BinanceService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// KlineResponse represents Binance API response for klines
type KlineResponse []interface{}

// GetKlines fetches candlestick data from Binance, oldest first
func (s *BinanceService) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", s.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build klines request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance API error: %s - %s", resp.Status, string(body))
	}

	var klineData []KlineResponse
	if err := json.NewDecoder(resp.Body).Decode(&klineData); err != nil {
		return nil, fmt.Errorf("failed to decode klines: %w", err)
	}

	klines := make([]model.Kline, 0, len(klineData))
	for idx, k := range klineData {
		kline, ok := parseKline(k)
		if !ok {
			log.Printf("⚠️  [Binance API] Skipping invalid kline %s %s at index %d", symbol, interval, idx)
			continue
		}
		klines = append(klines, kline)
	}

	return klines, nil
}

func parseKline(k KlineResponse) (model.Kline, bool) {
	if len(k) < 7 {
		return model.Kline{}, false
	}

	openTime := SafeTypeAssertFloat(k[0], 0)
	closeTime := SafeTypeAssertFloat(k[6], 0)

	open, err1 := strconv.ParseFloat(SafeTypeAssertString(k[1], "0"), 64)
	high, err2 := strconv.ParseFloat(SafeTypeAssertString(k[2], "0"), 64)
	low, err3 := strconv.ParseFloat(SafeTypeAssertString(k[3], "0"), 64)
	closePrice, err4 := strconv.ParseFloat(SafeTypeAssertString(k[4], "0"), 64)
	volume, err5 := strconv.ParseFloat(SafeTypeAssertString(k[5], "0"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return model.Kline{}, false
	}

	if !ValidatePrice(open) || !ValidatePrice(high) || !ValidatePrice(low) || !ValidatePrice(closePrice) {
		return model.Kline{}, false
	}

	// High >= Low, High >= Open/Close, Low <= Open/Close
	if high < low || high < open || high < closePrice || low > open || low > closePrice {
		return model.Kline{}, false
	}

	return model.Kline{
		OpenTime:  int64(openTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: int64(closeTime),
	}, true
}
