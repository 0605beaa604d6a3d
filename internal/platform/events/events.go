// Package events provides an in-process, fire-and-forget domain event
// dispatcher. Workflow operations publish outcomes ("request decided",
// "vaccination recorded") without depending on any subscriber succeeding.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Topics emitted by the engine.
const (
	TopicMedicationDecided  = "medication_request.decided"
	TopicConsentRecorded    = "vaccination.consent_recorded"
	TopicVaccinationDone    = "vaccination.recorded"
	TopicHealthCheckResult  = "health_check.result_recorded"
	TopicMedicalEventLogged = "medical_event.created"
)

// Event is a single domain event.
type Event struct {
	Topic      string            `json:"topic"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// Subscriber consumes dispatched events. Returning an error only affects
// logging; delivery is best-effort.
type Subscriber interface {
	Handle(ctx context.Context, evt Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, evt Event) error

func (f SubscriberFunc) Handle(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Dispatcher fans events out to subscribers on a background goroutine.
// Publish never blocks the emitting operation: when the buffer is full the
// event is dropped and counted.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	closed      bool
	queue       chan Event
	done        chan struct{}
	closeOnce   sync.Once
	dropped     atomic.Int64
	logger      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with the given buffer size and starts
// its delivery loop.
func NewDispatcher(buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go d.run()
	return d
}

// Subscribe registers a subscriber for all topics.
func (d *Dispatcher) Subscribe(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, s)
}

// Publish enqueues an event. It returns immediately; a full queue or a
// closed dispatcher drops the event rather than back-pressuring or failing
// the workflow that emitted it.
func (d *Dispatcher) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	// The read lock spans the send: Close flips closed under the write
	// lock before closing the queue, so a send never hits a closed channel.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn().Str("topic", evt.Topic).Msg("dispatcher closed, event dropped")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.dropped.Add(1)
		d.logger.Warn().Str("topic", evt.Topic).Msg("event queue full, event dropped")
	}
}

// Dropped returns the number of events dropped due to a full queue or a
// closed dispatcher.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops the delivery loop after draining queued events.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.queue {
		d.mu.RLock()
		subs := make([]Subscriber, len(d.subscribers))
		copy(subs, d.subscribers)
		d.mu.RUnlock()

		for _, s := range subs {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Handle(ctx, evt); err != nil {
				d.logger.Warn().Err(err).Str("topic", evt.Topic).Msg("event subscriber failed")
			}
			cancel()
		}
	}
}
