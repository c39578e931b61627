// Package queue runs a bounded-concurrency pool of tasks submitted in
// FIFO order, optionally throttled by a rolling rate limit: a
// channel-based pipe with a closable sender feeding a fixed number of
// worker goroutines, drained with a sync.WaitGroup.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/trunk-recorder/rtx-index/internal/metrics"
)

// Task is a unit of work submitted to the runner. It receives the run's
// context, which is cancelled if the runner is stopped early.
type Task func(ctx context.Context) error

// Stats reports how many submitted tasks have finished and how.
type Stats struct {
	Succeeded int64
	Failed    int64
}

// Runner executes tasks with bounded concurrency: at most maxTasks run at
// once, and tasks start in the order they were submitted (the channel
// preserves FIFO order; which ones finish first depends on their own
// duration).
type Runner struct {
	tasks   chan Task
	limiter *rate.Limiter
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewRunner returns a runner with maxTasks worker goroutines and a FIFO
// queue holding up to queueSize pending tasks before Submit blocks. A nil
// limiter disables rate limiting.
func NewRunner(maxTasks, queueSize int, limiter *rate.Limiter, log zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		tasks:   make(chan Task, queueSize),
		limiter: limiter,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < maxTasks; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	log := r.log.With().Int("worker", id).Logger()

	for task := range r.tasks {
		if r.ctx.Err() != nil {
			// Stopped: drain the queue without starting the task.
			r.failed.Add(1)
			metrics.QueueDepth.Dec()
			continue
		}

		if r.limiter != nil {
			if r.limiter.Tokens() < 1 {
				metrics.RateLimiterWaitsTotal.Inc()
			}
			if err := r.limiter.Wait(r.ctx); err != nil {
				r.failed.Add(1)
				metrics.QueueDepth.Dec()
				continue
			}
		}

		if err := task(r.ctx); err != nil {
			r.failed.Add(1)
			log.Warn().Err(err).Msg("task failed")
		} else {
			r.succeeded.Add(1)
		}
		metrics.QueueDepth.Dec()
	}
}

// Submit enqueues a task, blocking if the queue is full. It panics if
// called after Close — callers are expected to stop submitting before
// draining, matching a closable-channel sender.
func (r *Runner) Submit(t Task) {
	metrics.QueueDepth.Inc()
	r.tasks <- t
}

// Close signals that no further tasks will be submitted and waits for
// every queued and in-flight task to finish.
func (r *Runner) Close() {
	close(r.tasks)
	r.wg.Wait()
	r.cancel()
}

// Stop cancels the run immediately: workers in flight see a cancelled
// context, and Close still drains the channel so goroutines exit cleanly.
// Tasks drained after the cancel are not started and count as failed.
func (r *Runner) Stop() {
	r.cancel()
	r.Close()
}

// Stats returns the current outcome counts. Safe to call concurrently
// with Submit.
func (r *Runner) Stats() Stats {
	return Stats{Succeeded: r.succeeded.Load(), Failed: r.failed.Load()}
}
