// Package retry turns "log and drop" remote failures into background
// retries: the webhook caller gets its 200 immediately and the failed side
// effect is re-attempted with capped exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/storelink/affbridge/internal/metrics"
	"github.com/storelink/affbridge/internal/utils"
)

// Job is one failed side effect to replay. Fn must be safe to run more than
// once; every side effect in the pipeline is keyed and idempotent upstream.
type Job struct {
	ID   string
	Name string
	Fn   func(ctx context.Context) error
}

// Queue is the enqueue contract handlers depend on. The in-process
// implementation below is best-effort; a durable backend implements the same
// interface.
type Queue interface {
	Enqueue(name string, fn func(ctx context.Context) error)
}

type MemoryQueue struct {
	jobs    chan Job
	backoff utils.Backoff
	log     *slog.Logger
	m       *metrics.Metrics
	wg      sync.WaitGroup
}

func NewMemoryQueue(size int, backoff utils.Backoff, log *slog.Logger, m *metrics.Metrics) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(chan Job, size),
		backoff: backoff,
		log:     log,
		m:       m,
	}
}

// Enqueue never blocks a webhook handler: when the buffer is full the job is
// dropped and counted, matching the upstream promise that a downstream outage
// never turns into a retry storm.
func (q *MemoryQueue) Enqueue(name string, fn func(ctx context.Context) error) {
	job := Job{ID: uuid.NewString(), Name: name, Fn: fn}
	select {
	case q.jobs <- job:
		q.m.RetryQueueDepth.Inc()
		q.log.Info("side effect queued for retry", slog.String("job", job.ID), slog.String("name", name))
	default:
		q.m.RetryJobs.WithLabelValues("dropped").Inc()
		q.log.Error("retry queue full, dropping side effect", slog.String("name", name))
	}
}

// Start runs the worker until ctx is cancelled.
func (q *MemoryQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.jobs:
				q.m.RetryQueueDepth.Dec()
				q.run(ctx, job)
			}
		}
	}()
}

func (q *MemoryQueue) run(ctx context.Context, job Job) {
	err := q.backoff.Do(ctx, func(i int) error {
		if i > 0 {
			q.log.Debug("retrying side effect", slog.String("job", job.ID), slog.Int("attempt", i))
		}
		return job.Fn(ctx)
	})
	if err != nil {
		q.m.RetryJobs.WithLabelValues("exhausted").Inc()
		q.log.Error("side effect failed after retries", slog.String("job", job.ID), slog.String("name", job.Name), slog.String("err", err.Error()))
		return
	}
	q.m.RetryJobs.WithLabelValues("succeeded").Inc()
	q.log.Info("side effect replayed", slog.String("job", job.ID), slog.String("name", job.Name))
}

// Wait blocks until the worker has exited.
func (q *MemoryQueue) Wait() { q.wg.Wait() }
