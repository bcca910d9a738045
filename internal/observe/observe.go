// Package observe provides explicit observer registration. Whoever calls
// Subscribe owns the returned Subscription and must Unsubscribe it.
package observe

import "sync"

// Subscription is the handle returned by Hub.Subscribe.
type Subscription struct {
	hub  *Hub
	id   uint64
	once sync.Once
}

// Unsubscribe removes the listener. It is safe to call more than once and on a nil handle.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub fans a change notification out to registered listeners.
type Hub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]func()
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[uint64]func())}
}

// Subscribe registers fn and returns its handle.
func (h *Hub) Subscribe(fn func()) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.listeners[h.nextID] = fn
	return &Subscription{hub: h, id: h.nextID}
}

// Publish calls every listener synchronously. Listeners must not block;
// those with real work should hand it off to their own goroutine.
func (h *Hub) Publish() {
	h.mu.RLock()
	fns := make([]func(), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, id)
}
