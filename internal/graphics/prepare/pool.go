package prepare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"x2d/internal/graphics/batch"
	"x2d/internal/logging"
)

var (
	ErrNoBatch  = errors.New("prepare: job has no batch")
	ErrShutdown = errors.New("prepare: pool shut down")
)

// Job fills a Batch off the GL thread. Build may only touch the Batch it is
// given; drawing happens later on the thread owning the device.
type Job struct {
	ID    int
	Batch *batch.Batch
	Build func(b *batch.Batch) error
	// Result channel - will be sent the result when done. May be nil.
	Result chan<- Result
}

// Result reports a finished Job.
type Result struct {
	ID      int
	Batch   *batch.Batch
	Err     error
	Elapsed time.Duration
}

// Pool manages goroutines that build batches
type Pool struct {
	jobs    chan Job
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool starts workers goroutines reading from a queue of queueSize jobs.
func NewPool(workers int, queueSize int) *Pool {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan Job, max(queueSize, 0)),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Submit queues job without blocking. It returns false if the queue is full
// or the pool is shut down.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false // Queue is full
	}
}

// SubmitBlocking waits until job is queued. It returns false if the pool
// shuts down first.
func (p *Pool) SubmitBlocking(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// BuildAll runs jobs on the pool and waits for all of them. Results are
// returned in job order; the error joins every failed build.
func (p *Pool) BuildAll(ctx context.Context, jobs ...Job) ([]Result, error) {
	results := make(chan Result, len(jobs))
	for i, job := range jobs {
		job.ID = i
		job.Result = results
		if !p.SubmitBlocking(job) {
			return nil, ErrShutdown
		}
	}

	out := make([]Result, len(jobs))
	var errs []error
	for range jobs {
		select {
		case res := <-results:
			out[res.ID] = res
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("job %d: %w", res.ID, res.Err))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, ErrShutdown
		}
	}
	return out, errors.Join(errs...)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			if p.ctx.Err() != nil {
				// Shut down while queued: drop it.
				return
			}
			res := run(job)
			if job.Result == nil {
				if res.Err != nil {
					logging.Logger().Warn("prepare: build failed", "job", res.ID, "err", res.Err)
				}
				continue
			}
			select {
			case job.Result <- res:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

func run(job Job) (res Result) {
	start := time.Now()
	res = Result{ID: job.ID, Batch: job.Batch}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("build panicked: %v", r)
		}
		res.Elapsed = time.Since(start)
	}()
	if job.Batch == nil {
		res.Err = ErrNoBatch
		return res
	}
	if job.Build != nil {
		res.Err = job.Build(job.Batch)
	}
	return res
}

// Shutdown stops the workers and waits for them. Queued jobs that have not
// started are dropped. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		logging.Logger().Debug("prepare: pool stopped", "dropped", len(p.jobs))
	})
}

// QueueLength returns the current number of jobs in the queue
func (p *Pool) QueueLength() int {
	return len(p.jobs)
}
