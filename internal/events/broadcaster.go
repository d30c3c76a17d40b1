package events

import (
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 64

// Event types pushed to browsers.
const (
	TypeMarkers  = "markers"
	TypeReport   = "report"
	TypeStatus   = "status"
	TypeViewport = "viewport"
)

type Event struct {
	Session string
	Type    string
	Payload any
}

type subscriber struct {
	session string // "" receives every session's events
	ch      chan Event
}

type Broadcaster struct {
	subscribers map[uint64]subscriber
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]subscriber),
	}
}

// Subscribe registers a listener for session's events.
func (b *Broadcaster) Subscribe(session string) (uint64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = subscriber{session: session, ch: ch}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// CloseSession ends every stream subscribed to session and returns how many
// were closed.
func (b *Broadcaster) CloseSession(session string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, sub := range b.subscribers {
		if sub.session != session {
			continue
		}
		close(sub.ch)
		delete(b.subscribers, id)
		n++
	}
	return n
}

func (b *Broadcaster) Broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.session != "" && sub.session != e.Session {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, ending every open event stream
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
