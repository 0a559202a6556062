// Package broadcaster manages subscribers and distributes tree mutation events.
package broadcaster

import (
	"sync"

	"github.com/google/uuid"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// EventType represents the kind of tree mutation.
type EventType int

const (
	EventCreated EventType = iota
	EventDeleted
	EventRenamed
	EventMoved
	EventContentChanged
	EventTreeReplaced
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	case EventMoved:
		return "moved"
	case EventContentChanged:
		return "content_changed"
	case EventTreeReplaced:
		return "tree_replaced"
	default:
		return "unknown"
	}
}

// TreeEvent describes a completed tree mutation. Snapshot carries the full
// materialized project so consumers never need to re-query the engine.
type TreeEvent struct {
	Type      EventType
	ProjectID string
	FileID    string
	Snapshot  *types.Project
}

// Subscriber represents a consumer of tree events.
type Subscriber struct {
	ID     string
	Events chan *TreeEvent
}

// Broadcaster fans tree events out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a new subscription for tree events.
// Returns nil if the broadcaster has been closed.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan *TreeEvent, 100),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify sends an event to all subscribers. Slow subscribers whose buffer
// is full miss the event; every event carries a complete snapshot, so a
// later event supersedes anything dropped.
func (b *Broadcaster) Notify(event *TreeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			// Channel full, event dropped
		}
	}
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
