package services

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nuid"
	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/metrics"
)

// ScoreEvent is emitted after a score has been successfully persisted.
// Downstream consumers (webhook, email, CRM sync) react to it; their
// failures never reach the scoring result.
type ScoreEvent struct {
	ID           string    `json:"event_id"`
	AttemptID    string    `json:"attempt_id"`
	AssessmentID string    `json:"assessment_id"`
	ScoreID      string    `json:"score_id"`
	Percentage   *int      `json:"percentage"`
	TierID       string    `json:"tier_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier delivers one score event to one downstream consumer.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev ScoreEvent) error
}

const (
	defaultQueueSize     = 256
	defaultWorkerCount   = 2
	defaultNotifyTimeout = 10 * time.Second
)

// Dispatcher fans score events out to notifiers on worker goroutines.
// Publish never blocks scoring: a full queue drops the event and a failed
// delivery only logs.
type Dispatcher struct {
	events    chan ScoreEvent
	notifiers []Notifier
	workers   int
	timeout   time.Duration
	log       *logrus.Entry
	idGen     func() string

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(queueSize, workers int, notifiers ...Notifier) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	return &Dispatcher{
		events:    make(chan ScoreEvent, queueSize),
		notifiers: notifiers,
		workers:   workers,
		timeout:   defaultNotifyTimeout,
		log:       logrus.WithField("component", "dispatch"),
		idGen:     nuid.Next,
	}
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Publish enqueues an event for delivery. It reports false when the event
// was dropped, either because the queue is full or the dispatcher is
// already closed.
func (d *Dispatcher) Publish(ev ScoreEvent) bool {
	if ev.ID == "" {
		ev.ID = d.idGen()
	}
	// Hold the lock across the send so Close cannot close the channel
	// between the check and the enqueue.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.WithField("attempt_id", ev.AttemptID).Warn("dispatcher closed, dropping score event")
		return false
	}
	select {
	case d.events <- ev:
		return true
	default:
		metrics.DroppedEvents.Inc()
		d.log.WithField("attempt_id", ev.AttemptID).Warn("dispatch queue full, dropping score event")
		return false
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	started := d.started
	d.mu.Unlock()
	if started {
		d.wg.Wait()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.events {
		for _, n := range d.notifiers {
			d.deliver(n, ev)
		}
	}
}

func (d *Dispatcher) deliver(n Notifier, ev ScoreEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := n.Notify(ctx, ev); err != nil {
		metrics.DispatchedEvents.WithLabelValues(n.Name(), "error").Inc()
		d.log.WithFields(logrus.Fields{
			"notifier": n.Name(),
			"event_id": ev.ID,
		}).WithError(err).Warn("score event delivery failed")
		return
	}
	metrics.DispatchedEvents.WithLabelValues(n.Name(), "ok").Inc()
}
