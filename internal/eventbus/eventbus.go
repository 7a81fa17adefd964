// Package eventbus provides the two delivery styles used by the event hub:
// Listeners for synchronous observers and Topic for buffered asynchronous
// subscribers such as metrics collectors and the MQTT bridge.
package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Event is an arbitrary event carried by a Bus.
type Event = any

// EventBus is the subscriber side of an untyped Topic.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	SubscribeSize(n int) <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// DefaultBuffer is the channel capacity used by Subscribe.
const DefaultBuffer = 8

// Topic fans events of type T out to buffered subscriber channels. Publish
// never blocks: an event is dropped for a subscriber whose channel is full,
// and the drop is counted.
type Topic[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	closed  bool
	dropped atomic.Uint64
}

// Bus is the untyped topic shared by the hub.
type Bus = Topic[Event]

// New creates an untyped Bus.
func New() *Bus { return &Bus{} }

// NewTopic creates a Topic for T.
func NewTopic[T any]() *Topic[T] { return &Topic[T]{} }

// Publish offers e to every subscriber.
func (t *Topic[T]) Publish(e T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- e:
		default:
			t.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries lost to full subscriber channels.
func (t *Topic[T]) Dropped() uint64 { return t.dropped.Load() }

// Subscribers returns the number of live subscriptions.
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Subscribe registers a subscriber with DefaultBuffer capacity.
func (t *Topic[T]) Subscribe() <-chan T { return t.SubscribeSize(DefaultBuffer) }

// SubscribeSize registers a subscriber whose channel holds up to n pending
// events. Subscribing to a closed topic returns a closed channel.
func (t *Topic[T]) SubscribeSize(n int) <-chan T {
	ch := make(chan T, n)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

// Unsubscribe removes the subscriber and closes its channel. It is a no-op
// after Close.
func (t *Topic[T]) Unsubscribe(sub <-chan T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.subs, func(ch chan T) bool { return ch == sub })
	if i < 0 {
		return
	}
	close(t.subs[i])
	t.subs = slices.Delete(t.subs, i, i+1)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
}
