package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// Recorder defaults.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 256
	handleTimeout    = 5 * time.Second
)

// Recorder hands history events to a Handler off the request path through a
// bounded queue and a fixed worker pool. A full queue drops the event.
type Recorder struct {
	handler Handler
	queue   chan domhistory.Event
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts workers goroutines draining a queue of queueSize events.
func NewRecorder(h Handler, workers, queueSize int, logger *zap.Logger) *Recorder {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		handler: h,
		queue:   make(chan domhistory.Event, queueSize),
		logger:  logger,
		now:     time.Now,
	}
	r.wg.Add(workers)
	for range workers {
		go r.work()
	}
	return r
}

// Enqueue schedules a record without blocking. It reports false when the
// event was dropped because the queue is full or the recorder is closed.
func (r *Recorder) Enqueue(userID, q string) bool {
	e := domhistory.Event{UserID: userID, Query: q, At: r.now()}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.HistoryEventsTotal.WithLabelValues("dropped").Inc()
		return false
	}
	select {
	case r.queue <- e:
		return true
	default:
		r.logger.Warn("History queue full, dropping event", zap.Int("queue_size", cap(r.queue)))
		metrics.HistoryEventsTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// Close stops accepting events and waits until the queue is drained.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		err := r.handler.Handle(ctx, e)
		cancel()
		if err != nil {
			r.logger.Error("Failed to record search history",
				zap.String("user_id", e.UserID),
				zap.Error(err),
			)
			metrics.HistoryEventsTotal.WithLabelValues("failed").Inc()
			continue
		}
		metrics.HistoryEventsTotal.WithLabelValues("recorded").Inc()
	}
}
