package app

import (
	"context"
	"sync"

	"faculty-eval-service/internal/domain"
)

// Hub is an in-process publish/subscribe fanout keyed by room.
// Delivery is best-effort: a subscriber that falls behind loses its oldest pending event,
// and nothing is replayed to late subscribers.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan domain.Event]struct{}
	size  int
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[chan domain.Event]struct{}),
		size:  8,
	}
}

// Subscribe returns a channel receiving events for room.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(room string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, h.size)

	h.mu.Lock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[chan domain.Event]struct{})
		h.rooms[room] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.rooms[room]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.rooms, room)
		}
	}
	return ch, cancel
}

// Publish fans event out to every subscriber of event.Room. It never blocks.
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	if event.Room == "" {
		event.Room = domain.AdminRoom
	}
	// Write lock: the drop-oldest dance below must not interleave with another publisher.
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.rooms[event.Room] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
	return nil
}

// Subscribers reports how many channels listen on room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
