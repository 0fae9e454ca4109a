package playback

import "sync"

// Hub fans notifications out to subscribers and remembers the last state.
// Sources embed it to implement Subscriber and CurrentState.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	last      State
	hasLast   bool
}

func (h *Hub) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish records st as the current state and delivers it to every listener.
// Listeners run on the caller's goroutine, outside the hub lock.
func (h *Hub) Publish(sender string, st State) {
	h.mu.Lock()
	h.last = st
	h.hasLast = true
	ls := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.Unlock()

	for _, l := range ls {
		l(sender, st)
	}
}

func (h *Hub) CurrentState() (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}
