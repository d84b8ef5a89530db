// Package dispatch runs acked webhook work on a bounded worker pool so a
// burst of deliveries cannot fork an unbounded number of goroutines
package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
)

const (
	defaultWorkers = 4
	defaultQueue   = 64
)

// Job is one unit of post-ack work
type Job struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Options sizes the pool
type Options struct {
	Workers int
	Queue   int
}

// Pool owns the queue and the fixed worker set. Submissions after Shutdown
// are rejected; queued jobs drain before Shutdown returns.
type Pool struct {
	jobs chan Job
	opts Options
	log  logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a stopped pool; call Start before submitting
func NewPool(o Options) *Pool {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Queue <= 0 {
		o.Queue = defaultQueue
	}
	return &Pool{
		jobs: make(chan Job, o.Queue),
		opts: o,
		log:  *logger.Named("dispatch"),
	}
}

// Start launches the workers. ctx bounds the lifetime of every job.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.log.Info().Int("workers", p.opts.Workers).Int("queue", p.opts.Queue).Msg("dispatch pool started")
}

// Submit enqueues a job without blocking the caller. A full queue is
// backpressure the webhook sender will see and retry on.
func (p *Pool) Submit(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return perr.Transportf("dispatch pool is shut down")
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return perr.Transportf("dispatch queue full, dropping %s", job.Name)
	}
}

// Shutdown stops intake and waits for queued jobs to drain, up to ctx
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return perr.Transportf("dispatch pool drain interrupted")
	}
}

func (p *Pool) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(ctx, job)
	}
	p.log.Debug().Int("worker", n).Msg("dispatch worker drained")
}

// run executes one job with panic containment; a wedged handler must not
// take a worker down with it
func (p *Pool) run(ctx context.Context, job Job) {
	jctx := logger.WithJob(ctx, job.ID)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.C(jctx).Error().
				Str("job", job.Name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
		}
	}()

	err := job.Run(jctx)
	evt := logger.C(jctx).Info()
	if err != nil {
		evt = logger.C(jctx).Error().Err(err)
	}
	evt.Str("job", job.Name).Dur("elapsed", time.Since(start)).Msg("job finished")
}
