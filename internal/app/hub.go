package app

import "sync"

// hub fans status updates out to subscribers. Each subscriber has a
// one-slot buffer holding the newest status.
type hub struct {
	mu   sync.Mutex
	subs map[chan Status]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan Status]struct{})}
}

func (h *hub) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Replace the stale status.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
