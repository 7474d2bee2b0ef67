package store

import "sync"

// hub is an in-process subscription fan-out. Writes notify every
// subscriber whose filter matches the written entity. Cross-process
// liveness is the message bus's job, not the store's.
type hub[T any] struct {
	mu    sync.Mutex
	next  int
	subs  map[int]subscription[T]
	match func(T, Filter) bool
}

type subscription[T any] struct {
	filter Filter
	fn     func(T)
}

func newHub[T any](match func(T, Filter) bool) *hub[T] {
	return &hub[T]{
		subs:  make(map[int]subscription[T]),
		match: match,
	}
}

func (h *hub[T]) subscribe(f Filter, fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs[id] = subscription[T]{filter: f, fn: fn}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *hub[T]) notify(entity T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.subs))
	for _, sub := range h.subs {
		if h.match(entity, sub.filter) {
			fns = append(fns, sub.fn)
		}
	}
	h.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may re-enter the store.
	for _, fn := range fns {
		fn(entity)
	}
}
