// Package queue provides the fixed-rate FIFO queues that pace outbound media
// fetches: one dequeue per tick, at most one outstanding request per queue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/worker"
)

// Fetch performs the paced request for one id. It runs synchronously inside
// the tick, which guarantees a single outstanding request per queue.
type Fetch func(ctx context.Context, id string) error

type Config struct {
	// Name identifies the queue for logging and metrics.
	Name string

	// Interval is the pacing tick.
	Interval time.Duration

	// Fetch performs the request for a dequeued id.
	Fetch Fetch

	// Satisfied reports whether the id is already resident in the cache.
	Satisfied func(id string) bool

	// OnSatisfied re-raises the completion signal for an id that was
	// enqueued while already satisfied.
	OnSatisfied func(id string)

	Logger *zerolog.Logger
}

type Queue struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	pending []string
	queued  map[string]struct{}
}

func New(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Queue{
		cfg:    cfg,
		logger: logger.With().Str("component", "queue").Str("queue", cfg.Name).Logger(),
		queued: make(map[string]struct{}),
	}
}

// Enqueue appends an id. Enqueueing is idempotent: ids already satisfied in
// the cache are not queued and their completion signal is re-raised, ids
// already pending are dropped.
func (q *Queue) Enqueue(id string) {
	if q.cfg.Satisfied != nil && q.cfg.Satisfied(id) {
		if q.cfg.OnSatisfied != nil {
			q.cfg.OnSatisfied(id)
		}

		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.queued[id]; dup {
		return
	}

	q.queued[id] = struct{}{}
	q.pending = append(q.pending, id)
	observability.QueueDepth.WithLabelValues(q.cfg.Name).Set(float64(len(q.pending)))
}

// Len returns the number of pending ids.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Run paces the queue until the context is canceled.
func (q *Queue) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:     q.cfg.Name,
		Interval: q.cfg.Interval,
		OnTick:   q.tick,
		Logger:   &q.logger,
	})
}

func (q *Queue) tick(ctx context.Context) {
	id, ok := q.pop()
	if !ok {
		return
	}

	if err := q.cfg.Fetch(ctx, id); err != nil {
		q.logger.Error().Err(err).Str("id", id).Msg("fetch failed")
	}
}

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}

	id := q.pending[0]
	q.pending = q.pending[1:]
	delete(q.queued, id)
	observability.QueueDepth.WithLabelValues(q.cfg.Name).Set(float64(len(q.pending)))

	return id, true
}
