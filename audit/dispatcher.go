package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sinkWriteTimeout = 5 * time.Second

// Dispatcher queues events and writes them to every sink from a background
// goroutine. A full queue drops the event; sink errors are logged and dropped.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger
	queue  chan Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher with a queue of bufferSize events
func NewDispatcher(logger *zap.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:  sinks,
		logger: logger.Named("audit"),
		queue:  make(chan Event, bufferSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Record enqueues event without blocking
func (d *Dispatcher) Record(_ context.Context, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("Audit dispatcher closed, dropping event", zap.String("action", event.Action))
		return
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("Audit queue full, dropping event",
			zap.String("action", event.Action),
			zap.Uint("actor_id", event.ActorID))
	}
}

// Close stops accepting events and waits until the queue is drained
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for event := range d.queue {
		for _, sink := range d.sinks {
			d.write(sink, event)
		}
	}
}

func (d *Dispatcher) write(sink Sink, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Audit sink panicked", zap.Any("panic", r), zap.String("action", event.Action))
		}
	}()

	if err := sink.Write(ctx, event); err != nil {
		d.logger.Warn("Failed to persist audit event",
			zap.String("action", event.Action),
			zap.Uint("actor_id", event.ActorID),
			zap.Error(err))
	}
}
