package radio

import "sync"

// Hub fans state changes out to subscribed listeners.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan State]struct{}
	size int
}

// NewHub returns a hub whose subscribers buffer up to `buffer` states.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[chan State]struct{}), size: buffer}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan State, func()) {
	ch := make(chan State, h.size)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.drop(ch) })
	}
}

func (h *Hub) drop(ch chan State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Broadcast delivers s to every listener without blocking. Listeners with a full buffer are dropped.
func (h *Hub) Broadcast(s State) {
	var slow []chan State
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
			slow = append(slow, ch)
		}
	}
	h.mu.RUnlock()
	for _, ch := range slow {
		h.drop(ch)
	}
}

func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
