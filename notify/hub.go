package notify

import "sync"

// Hub fans change payloads out to the stream clients of each board.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[chan []byte]struct{}
	buffer  int
}

// NewHub creates a hub whose client queues hold buffer messages. A client that
// falls further behind misses messages rather than stalling the broadcaster.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{clients: make(map[string]map[chan []byte]struct{}), buffer: buffer}
}

// Register adds a client for boardID. The returned func unregisters it and
// closes the channel.
func (h *Hub) Register(boardID string) (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	set, ok := h.clients[boardID]
	if !ok {
		set = make(map[chan []byte]struct{})
		h.clients[boardID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients[boardID], ch)
			if len(h.clients[boardID]) == 0 {
				delete(h.clients, boardID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast delivers data to every client of boardID and returns how many received it.
func (h *Hub) Broadcast(boardID string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for ch := range h.clients[boardID] {
		select {
		case ch <- data:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) Clients(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[boardID])
}
