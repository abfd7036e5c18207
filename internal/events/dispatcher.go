package events

import (
	"context"
	"sync"
	"time"

	"techatlas/internal/observability"

	"go.uber.org/zap"
)

const (
	defaultQueueSize    = 256
	defaultSinkDeadline = 10 * time.Second
)

// Dispatcher queues events and delivers each one to every sink from a
// background worker. Publish never blocks; a full queue drops the event.
type Dispatcher struct {
	sinks    []Sink
	logger   *zap.Logger
	queue    chan ContentEvent
	deadline time.Duration

	once sync.Once
	wg   sync.WaitGroup
}

// NewDispatcher returns a dispatcher for sinks. Call Start before Publish.
func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sinks:    sinks,
		logger:   logger,
		queue:    make(chan ContentEvent, defaultQueueSize),
		deadline: defaultSinkDeadline,
	}
}

// Sinks returns the configured sink names.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Start runs the delivery worker until Close is called.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for ev := range d.queue {
			d.deliver(ev)
		}
	}()
}

// Publish enqueues ev.
func (d *Dispatcher) Publish(_ context.Context, ev ContentEvent) {
	if len(d.sinks) == 0 {
		return
	}
	defer func() {
		// Publishing after Close sends on a closed channel.
		if r := recover(); r != nil {
			d.logger.Warn("event dropped after shutdown", zap.String("kind", string(ev.Kind)), zap.String("type", string(ev.Type)))
		}
	}()
	select {
	case d.queue <- ev:
	default:
		observability.NotificationDeliveries.WithLabelValues("queue", "dropped").Inc()
		d.logger.Warn("event queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("type", string(ev.Type)),
			zap.String("slug", ev.Slug),
		)
	}
}

func (d *Dispatcher) deliver(ev ContentEvent) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.deadline)
		err := sink.Deliver(ctx, ev)
		cancel()

		observability.ObserveNotification(sink.Name(), err)
		if err != nil {
			d.logger.Warn("event delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.once.Do(func() { close(d.queue) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, sink := range d.sinks {
		if c, ok := sink.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
