package service

import (
	"fmt"
	"strings"

	"breakretest-go/internal/model"
)

// formatSignalMessage creates the HTML notification for a stored result
func formatSignalMessage(result *model.ScanResult) string {
	emoji := "🟢"
	title := "BULLISH RETEST"
	if result.PatternType == model.PatternBearishRetest {
		emoji = "🔴"
		title = "BEARISH RETEST"
	}

	return fmt.Sprintf(`%s <b>%s</b>
🪙 <b>%s</b> | %s

📏 <b>Level:</b> <code>%s</code> (%d touches)
💰 <b>Price:</b> <code>%s</code> (%+.2f%%)
⭐ <b>Confidence:</b> %.1f

📝 %s

⏰ <b>Candle:</b> %s
`,
		emoji,
		title,
		escapeHTML(result.Symbol),
		escapeHTML(result.Timeframe),
		FormatPrice(result.LevelPrice),
		result.Strength,
		FormatPrice(result.CurrentPrice),
		result.DistanceToLevelPct,
		result.ConfidenceScore,
		escapeHTML(result.Message),
		result.Timestamp.UTC().Format("15:04, 02 Jan"),
	)
}

// escapeHTML escapes HTML special characters for Telegram
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
