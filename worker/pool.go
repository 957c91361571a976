package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	plausibus "github.com/megadur/plausibus"
)

// Validator validates one raw document. *engine.Engine satisfies this.
type Validator interface {
	Validate(ctx context.Context, document []byte) (*plausibus.Report, error)
}

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker: pool is closed")

// Pool fans document validation out over a fixed set of goroutines.
type Pool struct {
	validator Validator
	workers   int

	jobs    chan Job
	results chan *JobResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool starts a pool. workers <= 0 defaults to the CPU count.
func NewPool(validator Validator, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		validator: validator,
		workers:   workers,
		jobs:      make(chan Job, workers*2),
		results:   make(chan *JobResult, workers*2),
		ctx:       ctx,
		cancel:    cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.results <- p.run(job)
	}
}

func (p *Pool) run(job Job) *JobResult {
	start := time.Now()
	report, err := p.validator.Validate(p.ctx, job.Document)
	elapsed := time.Since(start)

	p.jobsCompleted.Add(1)
	p.totalDuration.Add(uint64(elapsed))

	return &JobResult{ID: job.ID, Report: report, Err: err, Duration: elapsed}
}

// Submit queues a job. It blocks when all workers are busy and the queue
// is full, and fails once the pool or the context is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		p.jobsSubmitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Results returns the result channel. It is closed after Close once all
// queued jobs have finished. Results arrive in completion order, not
// submission order.
func (p *Pool) Results() <-chan *JobResult {
	return p.results
}

// Close stops accepting jobs and lets queued work drain. It does not wait;
// consume Results until it closes to observe completion.
func (p *Pool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.jobs)
	}
}

// Shutdown aborts in-flight validations and closes the pool.
func (p *Pool) Shutdown() {
	p.Close()
	p.cancel()
}

// Stats is a point-in-time view of pool throughput.
type Stats struct {
	Workers     int           `json:"workers"`
	Submitted   uint64        `json:"submitted"`
	Completed   uint64        `json:"completed"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Stats reports pool throughput counters.
func (p *Pool) Stats() Stats {
	completed := p.jobsCompleted.Load()
	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(p.totalDuration.Load() / completed)
	}
	return Stats{
		Workers:     p.workers,
		Submitted:   p.jobsSubmitted.Load(),
		Completed:   completed,
		AvgDuration: avg,
	}
}
