package screen

import "sync"

// Mailbox is a single-slot hand-off between a notifier and the worker that
// renders. A newer value overwrites an unconsumed one. The wake signal is a
// one-element channel, so raising it repeatedly before the worker looks is
// the same as raising it once.
type Mailbox[T any] struct {
	mu         sync.Mutex
	pending    T
	hasPending bool
	current    T
	hasCurrent bool
	signal     chan struct{}
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{signal: make(chan struct{}, 1)}
}

// Put stores v as the pending value and raises the signal. admit, when not
// nil, runs under the mailbox lock and may veto or rewrite v.
func (m *Mailbox[T]) Put(v T, admit func(T) (T, bool)) bool {
	m.mu.Lock()
	if admit != nil {
		var ok bool
		if v, ok = admit(v); !ok {
			m.mu.Unlock()
			return false
		}
	}
	m.pending = v
	m.hasPending = true
	m.mu.Unlock()

	m.Wake()
	return true
}

// Wake raises the signal without new data.
func (m *Mailbox[T]) Wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Signal is the channel the worker waits on.
func (m *Mailbox[T]) Signal() <-chan struct{} { return m.signal }

// Take promotes the pending value to current when the worker was signalled
// and returns the value to render.
func (m *Mailbox[T]) Take(signalled bool) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if signalled && m.hasPending {
		m.current = m.pending
		m.hasCurrent = true
		var zero T
		m.pending = zero
		m.hasPending = false
	}
	return m.current, m.hasCurrent
}

// Latest returns the newest value known to the mailbox, pending or current.
func (m *Mailbox[T]) Latest() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasPending {
		return m.pending, true
	}
	return m.current, m.hasCurrent
}

// Pending returns the unconsumed value, if any.
func (m *Mailbox[T]) Pending() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, m.hasPending
}
