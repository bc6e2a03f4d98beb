package worker

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"breakretest-go/internal/model"
)

// Evaluator evaluates one scan job. Implementations must be safe for
// concurrent use.
type Evaluator interface {
	EvaluatePair(ctx context.Context, job model.ScanJob) model.PairResult
}

type WorkerPool struct {
	ctx       context.Context
	workers   int
	jobs      chan model.ScanJob
	results   chan model.PairResult
	wg        sync.WaitGroup
	collected []model.PairResult
	done      chan struct{}
	evaluator Evaluator
}

// NewPool creates a new worker pool
func NewPool(ctx context.Context, workers int, evaluator Evaluator) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		ctx:       ctx,
		workers:   workers,
		jobs:      make(chan model.ScanJob, 100),
		results:   make(chan model.PairResult, 100),
		done:      make(chan struct{}),
		evaluator: evaluator,
	}
}

// Start launches the worker goroutines and the result collector
func (p *WorkerPool) Start() {
	go func() {
		defer close(p.done)
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker processes jobs from the jobs channel
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		result := p.evaluate(id, job)
		if result.Err != nil {
			log.Printf("⚠️  Worker %d: Error evaluating %s %s: %v", id, job.Symbol, job.Timeframe, result.Err)
		}
		p.results <- result
	}
}

func (p *WorkerPool) evaluate(id int, job model.ScanJob) (result model.PairResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [PANIC RECOVERED] Worker %d on %s %s: %v\n%s", id, job.Symbol, job.Timeframe, r, debug.Stack())
			result = model.PairResult{Job: job, Err: fmt.Errorf("panic while evaluating %s %s: %v", job.Symbol, job.Timeframe, r)}
		}
	}()

	if err := p.ctx.Err(); err != nil {
		return model.PairResult{Job: job, Err: err}
	}
	return p.evaluator.EvaluatePair(p.ctx, job)
}

// AddJob adds a job to the queue
func (p *WorkerPool) AddJob(job model.ScanJob) {
	p.jobs <- job
}

// Wait closes the jobs channel, waits for all workers to finish and returns
// every result in completion order
func (p *WorkerPool) Wait() []model.PairResult {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	<-p.done

	return p.collected
}
