// Package events carries a lightweight in-process publish/subscribe
// broker, adapted directly from the teacher's cluster event broker
// (pkg/events). It is not on the critical path of any detection or
// dispatch invariant — the scheduler calls the queue planner directly
// and synchronously. The broker exists purely as an observability
// fan-out: the admin API's recent-activity feed subscribes to it so
// that surface has no direct dependency on the scheduler or
// dispatcher.
package events

import (
	"sync"
	"time"
)

// Type identifies the kind of engine event being published.
type Type string

const (
	TypeChecked      Type = "event.checked"
	TypeStatusChange Type = "event.status_changed"
	TypeOpened       Type = "event.opened"
	TypeQueued       Type = "notification.queued"
	TypeDelivered    Type = "notification.delivered"
	TypeDeliveryFail Type = "notification.delivery_failed"
)

// Event is one engine-level occurrence.
type Event struct {
	Type        Type
	EventNumero int
	Timestamp   time.Time
	Message     string
	Metadata    map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. Safe for
// concurrent Publish/Subscribe/Unsubscribe.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker. Start must be called before
// Publish will deliver anything.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 32)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish publishes an event to all subscribers by handing it to the
// broker's own goroutine. It blocks only while the broker's 256-slot
// inbound buffer is full, until the broker drains a slot or is stopped.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full; drop rather than block the broker.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
