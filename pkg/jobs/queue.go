package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Enqueue before Start.
	ErrNotStarted = errors.New("queue not started")
	// ErrStopped is returned by Enqueue after Stop, and handed to OnGiveUp for jobs still buffered at Stop.
	ErrStopped = errors.New("queue stopped")
	// ErrFull is returned when the buffer has no room.
	ErrFull = errors.New("queue full")
)

const maxBackoff = 30 * time.Second

// Job wraps a typed payload travelling through a Queue.
type Job[T any] struct {
	ID       string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. Returning an error schedules a retry.
type Handler[T any] func(context.Context, Job[T]) error

// QueueConfig tunes a Queue.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first backoff step; it doubles per attempt up to 30s.
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue runs jobs on a fixed pool of goroutines and retries failures with
// backoff. Jobs live in memory only.
type Queue[T any] struct {
	name       string
	handler    Handler[T]
	onGiveUp   func(Job[T], error)
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs chan Job[T]

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
	timers  sync.WaitGroup
	started bool
}

// NewQueue builds a queue; call Start before Enqueue.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job[T], cfg.BufferSize),
	}
}

// OnGiveUp registers fn for jobs that exhausted their retries or were still
// pending at Stop. Register before Start.
func (q *Queue[T]) OnGiveUp(fn func(Job[T], error)) {
	q.onGiveUp = fn
}

// Start launches the workers. Only Stop ends them: cancelling ctx does not, so
// jobs keep retrying while the server drains. Later calls are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.running.Add(1)
		go q.work()
	}
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop halts the workers and gives up on whatever is still buffered.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()

	q.running.Wait()
	q.timers.Wait()

	dropped := 0
	for {
		select {
		case job := <-q.jobs:
			dropped++
			q.giveUp(job, ErrStopped)
		default:
			q.logger.Info("queue stopped", zap.Int("dropped", dropped))
			return
		}
	}
}

// Enqueue hands job to the workers without blocking.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	q.mu.Lock()
	started, ctx := q.started, q.ctx
	q.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if ctx.Err() != nil {
		return ErrStopped
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrFull
	}
}

func (q *Queue[T]) work() {
	defer q.running.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue[T]) retry(job Job[T], cause error) {
	if job.Attempt >= q.maxRetries {
		q.giveUp(job, cause)
		return
	}
	job.Attempt++
	delay := q.backoff(job.Attempt)
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)

	q.timers.Add(1)
	go func() {
		defer q.timers.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.giveUp(job, ErrStopped)
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.giveUp(job, err)
			}
		}
	}()
}

func (q *Queue[T]) backoff(attempt int) time.Duration {
	delay := q.retryDelay
	for i := 1; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	return min(delay, maxBackoff)
}

func (q *Queue[T]) giveUp(job Job[T], err error) {
	q.logger.Error("job abandoned", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	if q.onGiveUp != nil {
		q.onGiveUp(job, err)
	}
}
