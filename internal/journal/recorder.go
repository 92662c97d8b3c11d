// Package journal records published pool events as detections.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/idhash"
	"solana-pool-sniper/internal/listener"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/storage"
)

const (
	// DefaultWriteTimeout bounds one store write.
	DefaultWriteTimeout = 5 * time.Second
	// DefaultQueueSize is the number of pool events buffered ahead of the store.
	DefaultQueueSize = 1024
)

// Recorder stores one domain.Detection per pool account, at its first sighting.
// Attached recorders write from their own goroutine so a slow store never
// blocks the subscription that published the event.
type Recorder struct {
	store        storage.DetectionStore
	logger       *zap.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration
	queueSize    int
	now          func() time.Time

	mu     sync.Mutex
	seen   map[string]struct{}
	queue  chan listener.PoolEvent
	done   chan struct{}
	closed bool
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithWriteTimeout sets the per-write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithQueueSize sets how many pool events may wait for the store.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store storage.DetectionStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:        store,
		logger:       zap.NewNop(),
		writeTimeout: DefaultWriteTimeout,
		queueSize:    DefaultQueueSize,
		now:          time.Now,
		seen:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("journal")
	return r
}

// Attach subscribes the recorder to the bus's pool topic and starts the
// writer goroutine. Events arriving while the queue is full are dropped.
func (r *Recorder) Attach(bus *listener.Bus) {
	r.mu.Lock()
	if r.queue == nil && !r.closed {
		r.queue = make(chan listener.PoolEvent, r.queueSize)
		r.done = make(chan struct{})
		go r.run(r.queue, r.done)
	}
	r.mu.Unlock()

	bus.Pools.Subscribe(r.enqueue)
}

// Close stops accepting events and waits for queued writes to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	queue, done := r.queue, r.done
	r.mu.Unlock()

	if queue == nil {
		return
	}
	close(queue)
	<-done
}

func (r *Recorder) enqueue(ev listener.PoolEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.queue == nil {
		return
	}
	if _, ok := r.seen[idhash.ComputeDetectionID(ev.Protocol, ev.Account.String())]; ok {
		return
	}

	select {
	case r.queue <- ev:
	default:
		r.metrics.RecordJournalDrop()
		r.logger.Warn("journal queue full, dropping pool event",
			zap.String("protocol", string(ev.Protocol)),
			zap.String("account", ev.Account.String()),
			zap.Int64("slot", ev.Slot))
	}
}

func (r *Recorder) run(queue <-chan listener.PoolEvent, done chan<- struct{}) {
	defer close(done)

	for ev := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		if _, err := r.Record(ctx, ev); err != nil {
			r.logger.Warn("record detection failed",
				zap.String("protocol", string(ev.Protocol)),
				zap.String("account", ev.Account.String()),
				zap.Error(err))
		}
		cancel()
	}
}

// Record stores ev as the pool's detection. Returns the created detection, or
// nil if the pool was already recorded.
func (r *Recorder) Record(ctx context.Context, ev listener.PoolEvent) (*domain.Detection, error) {
	if ev.State == nil {
		return nil, fmt.Errorf("%w: pool event without state", storage.ErrInvalidInput)
	}

	account := ev.Account.String()
	id := idhash.ComputeDetectionID(ev.Protocol, account)
	if r.isSeen(id) {
		return nil, nil
	}

	mintA, mintB := ev.State.Mints()
	detectedAt := ev.ReceivedAt
	if detectedAt.IsZero() {
		detectedAt = r.now()
	}

	d := &domain.Detection{
		DetectionID: id,
		Protocol:    ev.Protocol,
		Account:     account,
		MintA:       mintA.String(),
		MintB:       mintB.String(),
		Slot:        ev.Slot,
		DetectedAt:  detectedAt.UnixMilli(),
		CreatedAt:   r.now().UnixMilli(),
	}

	err := r.store.Insert(ctx, d)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Recorded by an earlier run
		r.markSeen(id)
		return nil, nil
	}
	r.metrics.RecordDetection(err)
	if err != nil {
		return nil, err
	}
	r.markSeen(id)

	r.logger.Info("pool detected",
		zap.String("protocol", string(d.Protocol)),
		zap.String("account", d.Account),
		zap.String("mint_a", d.MintA),
		zap.String("mint_b", d.MintB),
		zap.Int64("slot", d.Slot))
	return d, nil
}

func (r *Recorder) isSeen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

func (r *Recorder) markSeen(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[id] = struct{}{}
}
