package server

import "sync"

// Hub fans out per-owner change notifications to event-stream
// subscribers. Subscriber channels hold one pending notification;
// extra ones coalesce, which is enough because subscribers respond by
// fetching the full snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers a listener for the owner's changes. The returned
// cancel must be called when the stream ends.
func (h *Hub) Subscribe(owner string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[chan struct{}]struct{})
	}
	h.subs[owner][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[owner], ch)
		if len(h.subs[owner]) == 0 {
			delete(h.subs, owner)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify wakes every subscriber watching the owner's rows.
func (h *Hub) Notify(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[owner] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
