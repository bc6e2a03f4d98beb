package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breakretest-go/internal/api"
	"breakretest-go/internal/cache"
	"breakretest-go/internal/config"
	"breakretest-go/internal/loader"
	"breakretest-go/internal/monitor"
	"breakretest-go/internal/service"
)

// storage is what a store driver provides to the rest of the service graph
type storage struct {
	signals   service.SignalStore
	watchlist api.Watchlist
	seed      func(ctx context.Context, userID int64, symbols, timeframes []string) error
	close     func() error
}

func main() {
	// Global panic recovery
	defer service.RecoverAndLog("main")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	log.Println("🔧 Initializing services...")

	store, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize %s store: %v", cfg.StoreDriver, err)
	}
	defer store.close()

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.seed(seedCtx, cfg.SeedUserID, cfg.SeedSymbols, cfg.SeedTimeframes); err != nil {
		log.Printf("⚠️ Failed to seed watchlist: %v", err)
	}
	cancelSeed()

	var provider service.CandleProvider = service.NewBinanceService(cfg.BinanceBaseURL)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️  Candle cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			provider = cache.NewCandleCache(provider, redisClient, cfg.CandleCacheTTL)
		}
	}

	guard := service.NewDuplicateGuard(store.signals, cfg.DuplicateWindow(), cfg.PriceTolerance)
	scanner := service.NewScannerService(provider, store.signals, guard, cfg.CandleLimit)
	queue := service.NewSignalQueue()

	var notifier loader.Notifier
	var telegram *service.TelegramService
	if cfg.TelegramBotToken != "" {
		telegram, err = service.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramUserChats)
		if err != nil {
			log.Printf("⚠️  Telegram notifications disabled: %v", err)
		} else {
			notifier = telegram
		}
	}

	loaderService, err := loader.NewLoader(scanner, store.watchlist, queue, notifier, loader.Options{
		Workers:           cfg.ScannerWorkers,
		Sensitivity:       cfg.DefaultSensitivity,
		DefaultTimeframes: cfg.SeedTimeframes,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize scanner: %v", err)
	}

	retention := monitor.NewRetentionMonitor(scanner, store.watchlist, cfg.RetentionDays)
	if err := retention.Start(cfg.RetentionSchedule); err != nil {
		log.Fatalf("❌ Failed to schedule retention: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if telegram != nil {
		telegram.SetStatusProvider(func() string {
			st := loaderService.Status()
			state := "stopped"
			if st.IsRunning {
				state = "running"
			}
			return fmt.Sprintf("Scanner %s, every %d minutes", state, st.IntervalMinutes)
		})
		telegram.StartCommands(ctx)
	}

	log.Println("✅ All services initialized successfully")

	if cfg.ScannerAutoStart {
		loaderService.Start(cfg.ScanIntervalMinutes)
	}

	server := api.NewServer(loaderService, scanner, store.watchlist)
	serverErr := make(chan error, 1)
	service.SafeGo("http server", func() {
		serverErr <- server.Start(":" + cfg.Port)
	})

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("🛑 Received shutdown signal...")
	case err := <-serverErr:
		if err != nil {
			log.Printf("❌ HTTP server stopped: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	loaderService.Stop()
	retention.Stop()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
	if err := loaderService.Wait(shutdownCtx); err != nil {
		log.Println("⚠️  Shutdown timeout - tick still running")
	}

	log.Println("👋 Shutdown complete")
}

func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := service.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &storage{signals: pg, watchlist: pg, seed: pg.SeedDefaults, close: pg.Close}, nil

	case config.StoreMemory:
		mem := service.NewMemoryStore()
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return &storage{signals: mem, watchlist: mem, seed: mem.SeedDefaults, close: func() error { return nil }}, nil

	default:
		db, err := service.NewDatabaseService(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		symbols := service.NewSymbolManager(db.GetDB())
		return &storage{signals: db, watchlist: symbols, seed: symbols.SeedDefaults, close: db.Close}, nil
	}
}
