package channel

import (
	"sync"

	"github.com/google/uuid"
)

// Handler receives events. Handlers run on the channel's read goroutine
// in arrival order and must not block for long.
type Handler func(Event)

type registration struct {
	id      string
	topic   EventType
	handler Handler
}

// registry maps topics to handlers. It is owned by the logical Channel and
// outlives every transport.
type registry struct {
	mu      sync.RWMutex
	entries []registration
}

func (r *registry) add(topic EventType, h Handler) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries = append(r.entries, registration{id: id, topic: topic, handler: h})
	r.mu.Unlock()
	return id
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// match returns the handlers for topic followed by wildcard handlers, each
// group in registration order.
func (r *registry) match(topic EventType) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var topical, wild []Handler
	for _, e := range r.entries {
		switch e.topic {
		case topic:
			topical = append(topical, e.handler)
		case Wildcard:
			wild = append(wild, e.handler)
		}
	}
	return append(topical, wild...)
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
