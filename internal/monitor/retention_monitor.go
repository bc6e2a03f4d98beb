package monitor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"breakretest-go/internal/service"

	"github.com/robfig/cron/v3"
)

// SweepReport is the outcome of one retention sweep
type SweepReport struct {
	Users             int
	ExpiredDeleted    int64
	DuplicatesRemoved int
	Errors            int
}

// RetentionMonitor periodically deletes expired results and purges duplicates
// for every user with an active watchlist
type RetentionMonitor struct {
	scanner       *service.ScannerService
	watchlist     service.WatchlistReader
	retentionDays int

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRetentionMonitor creates a monitor. retentionDays <= 0 keeps results
// forever and only purges duplicates.
func NewRetentionMonitor(scanner *service.ScannerService, watchlist service.WatchlistReader, retentionDays int) *RetentionMonitor {
	return &RetentionMonitor{
		scanner:       scanner,
		watchlist:     watchlist,
		retentionDays: retentionDays,
	}
}

// Start schedules sweeps with a cron spec such as "@daily" or "0 3 * * *"
func (rm *RetentionMonitor) Start(spec string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cron != nil {
		return nil
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		rm.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}

	c.Start()
	rm.cron = c
	log.Printf("🧹 [Retention] Sweeps scheduled (%s, keep %d days)", spec, rm.retentionDays)
	return nil
}

func (rm *RetentionMonitor) Stop() {
	rm.mu.Lock()
	c := rm.cron
	rm.cron = nil
	rm.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep runs one retention pass over every user with active watchlist items
func (rm *RetentionMonitor) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	items, err := rm.watchlist.ListActive(ctx, 0)
	if err != nil {
		log.Printf("❌ [Retention] Failed to list watchlist: %v", err)
		report.Errors++
		return report
	}

	seen := make(map[int64]struct{})
	var users []int64
	for _, item := range items {
		if _, ok := seen[item.UserID]; ok {
			continue
		}
		seen[item.UserID] = struct{}{}
		users = append(users, item.UserID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	report.Users = len(users)

	for _, userID := range users {
		if rm.retentionDays > 0 {
			deleted, err := rm.scanner.ClearOldResults(ctx, userID, rm.retentionDays)
			if err != nil {
				log.Printf("⚠️  [Retention] Clear failed for user %d: %v", userID, err)
				report.Errors++
			}
			report.ExpiredDeleted += deleted
		}

		removed, err := rm.scanner.PurgeDuplicates(ctx, userID)
		if err != nil {
			log.Printf("⚠️  [Retention] Purge failed for user %d: %v", userID, err)
			report.Errors++
		}
		report.DuplicatesRemoved += removed
	}

	log.Printf("🧹 [Retention] Sweep done: %d users, %d expired, %d duplicates, %d errors",
		report.Users, report.ExpiredDeleted, report.DuplicatesRemoved, report.Errors)
	return report
}
