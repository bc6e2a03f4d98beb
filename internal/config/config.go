package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	NodeEnv string
	Port    string

	// Persistence
	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string

	// Candle cache
	RedisAddr      string
	RedisPassword  string
	CandleCacheTTL time.Duration

	// Market data
	BinanceBaseURL string

	// Notifications
	TelegramBotToken  string
	TelegramChatID    string
	TelegramUserChats map[int64]int64 // user id -> chat id

	// Scanner
	ScanIntervalMinutes  int
	ScannerAutoStart     bool
	DefaultSensitivity   string
	ScannerWorkers       int
	CandleLimit          int
	DuplicateWindowHours int
	PriceTolerance       float64 // fraction, 0.005 = 0.5%

	// Retention
	RetentionDays     int
	RetentionSchedule string

	// Watchlist seeding
	SeedUserID     int64
	SeedSymbols    []string
	SeedTimeframes []string
}

var AppConfig *Config

// Load reads environment variables and initializes the global config
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	AppConfig = &Config{
		NodeEnv:              getEnv("NODE_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017/breakretest"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "breakretest"),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		CandleCacheTTL:       time.Duration(getEnvAsInt("CANDLE_CACHE_TTL_SECONDS", 30)) * time.Second,
		BinanceBaseURL:       getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramUserChats:    parseUserChats(getEnv("TELEGRAM_USER_CHATS", "")),
		ScanIntervalMinutes:  getEnvAsInt("SCAN_INTERVAL_MINUTES", 5),
		ScannerAutoStart:     getEnvAsBool("SCANNER_AUTO_START", false),
		DefaultSensitivity:   strings.ToLower(getEnv("SCANNER_SENSITIVITY", SensitivityMedium)),
		ScannerWorkers:       getEnvAsInt("SCANNER_WORKERS", 10),
		CandleLimit:          getEnvAsInt("CANDLE_LIMIT", 500),
		DuplicateWindowHours: getEnvAsInt("DUPLICATE_WINDOW_HOURS", 24),
		PriceTolerance:       getEnvAsFloat("DUPLICATE_PRICE_TOLERANCE", 0.005),
		RetentionDays:        getEnvAsInt("RETENTION_DAYS", 0),
		RetentionSchedule:    getEnv("RETENTION_SCHEDULE", "@daily"),
		SeedUserID:           int64(getEnvAsInt("SEED_USER_ID", 0)),
		SeedSymbols:          getEnvAsSlice("SEED_SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT,BNBUSDT,XRPUSDT"),
		SeedTimeframes:       getEnvAsSlice("SEED_TIMEFRAMES", "1h,4h"),
	}

	log.Println("✅ Configuration loaded successfully")
	return AppConfig
}

// Validate reports configuration that must stop the process at startup
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for store driver %q", c.StoreDriver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.ScanIntervalMinutes < MinScanIntervalMinutes || c.ScanIntervalMinutes > MaxScanIntervalMinutes {
		return fmt.Errorf("SCAN_INTERVAL_MINUTES must be between %d and %d, got %d",
			MinScanIntervalMinutes, MaxScanIntervalMinutes, c.ScanIntervalMinutes)
	}
	if _, err := ParseSensitivity(c.DefaultSensitivity); err != nil {
		return err
	}
	if c.ScannerWorkers < 1 {
		return fmt.Errorf("SCANNER_WORKERS must be positive, got %d", c.ScannerWorkers)
	}
	if c.CandleLimit < 1 {
		return fmt.Errorf("CANDLE_LIMIT must be positive, got %d", c.CandleLimit)
	}
	if c.DuplicateWindowHours < 0 {
		return fmt.Errorf("DUPLICATE_WINDOW_HOURS must not be negative, got %d", c.DuplicateWindowHours)
	}
	if c.PriceTolerance < 0 || c.PriceTolerance >= 1 {
		return fmt.Errorf("DUPLICATE_PRICE_TOLERANCE must be a fraction in [0, 1), got %v", c.PriceTolerance)
	}
	return nil
}

// DuplicateWindow returns the duplicate suppression window as a duration
func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("⚠️  Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		log.Printf("⚠️  Invalid number for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Printf("⚠️  Invalid boolean for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvAsSlice(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	// Split by comma
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseUserChats reads "user:chat,user:chat" pairs
func parseUserChats(value string) map[int64]int64 {
	chats := make(map[int64]int64)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		userID, err1 := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		chatID, err2 := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err1 != nil || err2 != nil {
			log.Printf("⚠️  Skipping invalid TELEGRAM_USER_CHATS entry %q", pair)
			continue
		}
		chats[userID] = chatID
	}
	return chats
}
