package service

import (
	"context"
	"sync"
	"time"

	"gptcatalog/internal/logger"
	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
)

const (
	defaultEventBatchSize     = 10
	defaultEventFlushInterval = time.Second
	defaultEventBuffer        = 100
)

// EventSink accepts audit entries for webhook deliveries.
type EventSink interface {
	Record(ctx context.Context, event model.PaymentEvent)
}

// EventRecorder writes payment events asynchronously in batches. Batches are
// flushed when full, on every tick and on Close.
type EventRecorder struct {
	repo      repository.PaymentEventRepository
	log       logger.Logger
	ch        chan model.PaymentEvent
	batchSize int
	interval  time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ EventSink = (*EventRecorder)(nil)

// RecorderOption customizes an EventRecorder.
type RecorderOption func(*EventRecorder)

// WithBatchSize sets how many events are written per batch.
func WithBatchSize(n int) RecorderOption {
	return func(r *EventRecorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(r *EventRecorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewEventRecorder starts the background writer.
func NewEventRecorder(repo repository.PaymentEventRepository, log logger.Logger, opts ...RecorderOption) *EventRecorder {
	if log == nil {
		log = logger.Nop()
	}
	r := &EventRecorder{
		repo:      repo,
		log:       log,
		ch:        make(chan model.PaymentEvent, defaultEventBuffer),
		batchSize: defaultEventBatchSize,
		interval:  defaultEventFlushInterval,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.worker(context.Background())

	return r
}

func (r *EventRecorder) worker(ctx context.Context) {
	defer close(r.done)

	batch := make([]model.PaymentEvent, 0, r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.repo.CreateBatch(ctx, batch); err != nil {
			r.log.Error("failed to write payment events", "count", len(batch), "error", err)
		}
		batch = make([]model.PaymentEvent, 0, r.batchSize)
	}

	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Record queues event. When the queue is full the event is written
// synchronously. Events recorded after Close are written synchronously too.
func (r *EventRecorder) Record(ctx context.Context, event model.PaymentEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	if !r.closed {
		select {
		case r.ch <- event:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()

	if err := r.repo.Create(ctx, &event); err != nil {
		r.log.Error("failed to write payment event", "event", event.Event, "error", err)
	}
}

// Close stops accepting queued events and waits for pending ones to be written.
func (r *EventRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}
