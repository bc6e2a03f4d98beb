package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"breakretest-go/internal/config"
	"breakretest-go/internal/model"
	"breakretest-go/internal/service"
	"breakretest-go/internal/worker"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Notifier delivers freshly stored signals of one user
type Notifier interface {
	NotifySignals(ctx context.Context, userID int64, results []model.ScanResult) error
}

type Options struct {
	Workers           int
	Sensitivity       string
	DefaultTimeframes []string
}

// Status is the orchestrator state reported to callers
type Status struct {
	IsRunning       bool       `json:"is_running"`
	IntervalMinutes int        `json:"interval_minutes"`
	LastTick        *time.Time `json:"last_tick"`
	NextTick        *time.Time `json:"next_tick"`
}

// TickReport summarizes one scheduled tick
type TickReport struct {
	RunID      string
	Users      int
	Pairs      int
	NewSignals int
	Executions []model.ScanExecution
}

// Loader schedules recurring scans over every user's watchlist and runs
// manual scans on demand.
type Loader struct {
	scanner   *service.ScannerService
	watchlist service.WatchlistReader
	queue     *service.SignalQueue
	notifier  Notifier
	opts      Options

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	interval int
	lastTick time.Time

	ticking atomic.Bool
	// serializes duplicate check, insert and queue push
	writeMu sync.Mutex
}

// NewLoader creates a new loader instance. notifier may be nil.
func NewLoader(
	scanner *service.ScannerService,
	watchlist service.WatchlistReader,
	queue *service.SignalQueue,
	notifier Notifier,
	opts Options,
) (*Loader, error) {
	if scanner == nil {
		return nil, errors.New("loader: scanner service is required")
	}
	if watchlist == nil {
		return nil, errors.New("loader: watchlist is required")
	}
	if queue == nil {
		return nil, errors.New("loader: signal queue is required")
	}

	profile, err := config.ParseSensitivity(opts.Sensitivity)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	opts.Sensitivity = profile.Name
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.DefaultTimeframes) == 0 {
		opts.DefaultTimeframes = []string{"1h", "4h"}
	}

	return &Loader{
		scanner:   scanner,
		watchlist: watchlist,
		queue:     queue,
		notifier:  notifier,
		opts:      opts,
		interval:  5,
	}, nil
}

// Start begins scheduled ticks every intervalMinutes, clamped to [1, 60].
// Calling Start while running is a no-op.
func (l *Loader) Start(intervalMinutes int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cron != nil {
		return
	}

	l.interval = config.ClampInterval(intervalMinutes)

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	l.entryID = c.Schedule(cron.Every(time.Duration(l.interval)*time.Minute), cron.FuncJob(l.Tick))
	c.Start()
	l.cron = c

	log.Printf("⏰ [Scanner] Started automatic scanning every %d minutes", l.interval)
}

// Stop cancels future ticks. A tick in progress runs to completion.
func (l *Loader) Stop() {
	l.mu.Lock()
	c := l.cron
	l.cron = nil
	l.mu.Unlock()

	if c == nil {
		return
	}
	c.Stop()
	log.Println("🛑 [Scanner] Stopped automatic scanning")
}

// Wait blocks until no tick is running or ctx is done
func (l *Loader) Wait(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ticking.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := Status{
		IsRunning:       l.cron != nil,
		IntervalMinutes: l.interval,
	}
	if !l.lastTick.IsZero() {
		last := l.lastTick
		status.LastTick = &last
	}
	if l.cron != nil {
		if next := l.cron.Entry(l.entryID).Next; !next.IsZero() {
			status.NextTick = &next
		}
	}
	return status
}

// Tick runs one scheduled scan for every user with active watchlist items
func (l *Loader) Tick() {
	ctx := context.Background()
	if _, ran := l.RunTick(ctx); !ran {
		log.Println("⏭️  Skipping cycle - previous tick still running")
	}
}

// RunTick executes one tick. It returns false without doing anything when
// another tick is still in progress.
func (l *Loader) RunTick(ctx context.Context) (TickReport, bool) {
	if !l.ticking.CompareAndSwap(false, true) {
		return TickReport{}, false
	}
	defer l.ticking.Store(false)

	report := TickReport{RunID: uuid.New().String()}
	started := time.Now()

	log.Println("===========================================")
	log.Printf("🔄 [Scanner] Tick %s started at %s", report.RunID[:8], started.Format("15:04:05"))
	log.Println("===========================================")

	items, err := l.watchlist.ListActive(ctx, 0)
	if err != nil {
		log.Printf("❌ Failed to fetch watchlist: %v", err)
		l.markTick()
		return report, true
	}

	byUser := groupByUser(items)
	report.Users = len(byUser.order)

	jobs := make([]model.ScanJob, 0)
	for _, userID := range byUser.order {
		jobs = append(jobs, l.buildJobs(userID, byUser.items[userID], nil, l.opts.Sensitivity, len(jobs))...)
	}
	report.Pairs = len(jobs)

	results := l.evaluate(ctx, jobs)
	resultsByUser := make(map[int64][]model.PairResult)
	for _, r := range results {
		resultsByUser[r.Job.UserID] = append(resultsByUser[r.Job.UserID], r)
	}

	for _, userID := range byUser.order {
		stored, execution := l.persist(ctx, userID, len(byUser.items[userID]), l.opts.Sensitivity, resultsByUser[userID], true)
		report.Executions = append(report.Executions, *execution)
		if len(stored) == 0 {
			continue
		}

		report.NewSignals += len(stored)
		log.Printf("📈 [Scanner] Found %d signals for user %d", len(stored), userID)

		if l.notifier != nil {
			if err := l.notifier.NotifySignals(ctx, userID, stored); err != nil {
				log.Printf("⚠️  [Scanner] Notification failed for user %d: %v", userID, err)
			}
		}
	}

	l.markTick()

	log.Println("===========================================")
	log.Printf("✨ Tick complete - %d users, %d pairs, %d new signals in %s",
		report.Users, report.Pairs, report.NewSignals, time.Since(started).Round(time.Millisecond))
	log.Println("===========================================")
	return report, true
}

// RunOnce scans one user's watchlist immediately. symbols narrows the
// watchlist, timeframes overrides each item's timeframes and an empty
// sensitivity uses the loader default. Results are stored but neither queued
// nor notified.
func (l *Loader) RunOnce(ctx context.Context, userID int64, symbols, timeframes []string, sensitivity string) ([]model.ScanResult, *model.ScanExecution, error) {
	if sensitivity == "" {
		sensitivity = l.opts.Sensitivity
	}
	profile, err := config.ParseSensitivity(sensitivity)
	if err != nil {
		return nil, nil, err
	}

	items, err := l.watchlist.ListActive(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	items = service.FilterWatchlist(items, symbols)
	if len(items) == 0 {
		return []model.ScanResult{}, nil, nil
	}

	jobs := l.buildJobs(userID, items, timeframes, profile.Name, 0)
	results := l.evaluate(ctx, jobs)

	stored, execution := l.persist(ctx, userID, len(items), profile.Name, results, false)
	if stored == nil {
		stored = []model.ScanResult{}
	}
	return stored, execution, nil
}

// TakeNewSignals returns and clears the user's pending signals
func (l *Loader) TakeNewSignals(userID int64) []model.QueueEntry {
	return l.queue.Take(userID)
}

func (l *Loader) buildJobs(userID int64, items []model.WatchlistItem, timeframes []string, sensitivity string, seq int) []model.ScanJob {
	var jobs []model.ScanJob
	for _, item := range items {
		tfs := timeframes
		if len(tfs) == 0 {
			tfs = item.Timeframes
		}
		if len(tfs) == 0 {
			tfs = l.opts.DefaultTimeframes
		}

		for _, tf := range tfs {
			tf = strings.TrimSpace(tf)
			if tf == "" {
				continue
			}
			jobs = append(jobs, model.ScanJob{
				Seq:         seq,
				UserID:      userID,
				Symbol:      strings.ToUpper(item.Symbol),
				Timeframe:   tf,
				Sensitivity: sensitivity,
			})
			seq++
		}
	}
	return jobs
}

func (l *Loader) evaluate(ctx context.Context, jobs []model.ScanJob) []model.PairResult {
	if len(jobs) == 0 {
		return nil
	}

	pool := worker.NewPool(ctx, l.opts.Workers, l.scanner)
	pool.Start()

	for _, job := range jobs {
		pool.AddJob(job)
	}

	results := pool.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Job.Seq < results[j].Job.Seq })
	return results
}

// persist applies the duplicate guard, stores new signals, optionally queues
// them and records the execution for one user
func (l *Loader) persist(ctx context.Context, userID int64, symbols int, sensitivity string, results []model.PairResult, enqueue bool) ([]model.ScanResult, *model.ScanExecution) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	execution := &model.ScanExecution{
		UserID:         userID,
		SymbolsScanned: symbols,
		PairsScanned:   len(results),
		Sensitivity:    sensitivity,
	}

	var stored []model.ScanResult
	for _, r := range results {
		switch {
		case r.Err != nil:
			execution.PairsFailed++
			log.Printf("⚠️  [Scanner] Error scanning %s %s for user %d: %v", r.Job.Symbol, r.Job.Timeframe, userID, r.Err)
			continue
		case r.InsufficientData:
			log.Printf("⏭️  [Scanner] %s %s skipped: only %d candles", r.Job.Symbol, r.Job.Timeframe, r.Candles)
			continue
		}

		for _, sig := range r.Signals {
			result, outcome, err := l.scanner.StoreSignal(ctx, userID, sig)
			switch outcome {
			case service.OutcomeStored:
				stored = append(stored, *result)
			case service.OutcomeDuplicate:
				execution.DuplicatesSkipped++
				log.Printf("⏭️  %s %s %s - Skipping duplicate signal", sig.Symbol, sig.Timeframe, sig.PatternType)
			default:
				execution.PersistFailures++
				log.Printf("❌ [Scanner] Failed to store %s %s signal: %v", sig.Symbol, sig.Timeframe, err)
			}
		}
	}
	execution.SignalsFound = len(stored)

	if enqueue && len(stored) > 0 {
		entries := make([]model.QueueEntry, 0, len(stored))
		for _, r := range stored {
			entries = append(entries, model.NewQueueEntry(r))
		}
		l.queue.Push(userID, entries...)
	}

	if err := l.scanner.RecordExecution(ctx, execution); err != nil {
		log.Printf("❌ [Scanner] Failed to record execution for user %d: %v", userID, err)
	}
	return stored, execution
}

func (l *Loader) markTick() {
	l.mu.Lock()
	l.lastTick = time.Now().UTC()
	l.mu.Unlock()
}

type userItems struct {
	order []int64
	items map[int64][]model.WatchlistItem
}

func groupByUser(items []model.WatchlistItem) userItems {
	g := userItems{items: make(map[int64][]model.WatchlistItem)}
	for _, item := range items {
		if _, ok := g.items[item.UserID]; !ok {
			g.order = append(g.order, item.UserID)
		}
		g.items[item.UserID] = append(g.items[item.UserID], item)
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })
	return g
}
