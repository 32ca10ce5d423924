package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrQueueFull   = errors.New("notify: queue full")
	ErrQueueClosed = errors.New("notify: queue closed")
)

type QueueConfig struct {
	Workers  int           // Concurrent deliveries (default: 4)
	Capacity int           // Buffered notices before Send fails (default: 256)
	Attempts uint          // Delivery attempts per notice (default: 3)
	Delay    time.Duration // Initial backoff (default: 500ms)
}

// Queue hands notices to the next Dispatcher in the background so request
// handlers never wait on a mail relay. Delivery failures are retried with
// backoff and then logged.
type Queue struct {
	next    Dispatcher
	cfg     QueueConfig
	jobs    chan job
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	observe func(kind string, err error)
}

type job struct {
	kind string
	ctx  context.Context
	run  func(ctx context.Context) error
}

// NewQueue starts the delivery loop. Call Close to drain it.
func NewQueue(next Dispatcher, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}

	q := &Queue{
		next: next,
		cfg:  cfg,
		jobs: make(chan job, cfg.Capacity),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

// OnResult registers a callback invoked after every delivery outcome.
// It must be set before the first Send.
func (q *Queue) OnResult(fn func(kind string, err error)) { q.observe = fn }

func (q *Queue) SendInvitation(ctx context.Context, n InvitationNotice) error {
	return q.enqueue(ctx, "invitation", func(ctx context.Context) error {
		return q.next.SendInvitation(ctx, n)
	})
}

func (q *Queue) SendWelcome(ctx context.Context, n WelcomeNotice) error {
	return q.enqueue(ctx, "welcome", func(ctx context.Context) error {
		return q.next.SendWelcome(ctx, n)
	})
}

func (q *Queue) enqueue(ctx context.Context, kind string, run func(context.Context) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	// Keep the request's logger and values, drop its cancellation.
	j := job{kind: kind, ctx: context.WithoutCancel(ctx), run: run}
	select {
	case q.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) loop() {
	defer close(q.done)

	workers := pool.New().WithMaxGoroutines(q.cfg.Workers)
	for j := range q.jobs {
		workers.Go(func() { q.deliver(j) })
	}
	workers.Wait()
}

func (q *Queue) deliver(j job) {
	log := slogx.FromContext(j.ctx)

	err := retry.Do(
		func() error { return j.run(j.ctx) },
		retry.Context(j.ctx),
		retry.Attempts(q.cfg.Attempts),
		retry.Delay(q.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("notification delivery failed, retrying",
				slog.String("kind", j.kind),
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		log.Error("notification dropped",
			slog.String("kind", j.kind),
			slog.Any("error", err),
		)
	}

	if q.observe != nil {
		q.observe(j.kind, err)
	}
}

// Close stops accepting notices and waits until queued ones are delivered or
// ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
