// Package events decouples game-list mutation from its observers: the core
// publishes typed change descriptors and UI / persistence / index adapters
// subscribe to the ones they care about.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// ServerListChanged - an entry was created, removed or updated; UI
	// list views should redraw.
	ServerListChanged EventType = "server_list_changed"
	// ContentInfoChanged - content compatibility was re-resolved for the
	// whole list. Published once per reconcile pass, not per entry.
	ContentInfoChanged EventType = "content_info_changed"
	// HostListChanged - the set of manually added servers changed and the
	// persisted host list must be rebuilt.
	HostListChanged EventType = "host_list_changed"
)

// Buffer sizes for subscriber channels. Publishers never block: an event to
// a full channel is dropped.
const (
	channelBufferSize    = 64
	channelBufferSizeAll = 256
)

// Event is a single change descriptor.
type Event struct {
	Type      EventType   `json:"type"`
	Address   string      `json:"address,omitempty"`
	Action    string      `json:"action,omitempty"` // "created", "updated", "removed"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Bus is a thread-safe pub/sub bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	all         []chan Event
	closed      bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
	}
}

// Subscribe returns a buffered channel receiving events of the given type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, channelBufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a buffered channel receiving every published event.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, channelBufferSizeAll)
	b.all = append(b.all, ch)
	return ch
}

// Unsubscribe removes a subscription channel obtained from Subscribe.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			subs[i] = subs[len(subs)-1]
			b.subscribers[eventType] = subs[:len(subs)-1]
			break
		}
	}
	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
}

// Publish delivers an event to all matching subscribers without blocking;
// events to full channels are dropped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
	b.subscribers = make(map[EventType][]chan Event)
	b.all = nil
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
