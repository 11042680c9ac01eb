package live

import (
	"sync"

	"telemetry-console/internal/observability/metrics"
	telemetry "telemetry-console/internal/telemetry/domain"
)

const defaultBuffer = 16

// Hub fans out labelled snapshot tables to connected stream clients.
// A client whose buffer is full misses the message; publishers never block.
type Hub struct {
	mu      sync.Mutex
	clients map[chan telemetry.Table]struct{}
	buffer  int
}

// NewHub constructs a hub. buffer <= 0 uses the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{clients: make(map[chan telemetry.Table]struct{}), buffer: buffer}
}

// Subscribe registers a client. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan telemetry.Table, func()) {
	if h == nil {
		return nil, func() {}
	}
	ch := make(chan telemetry.Table, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.SetStreamClients(count)

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(ch) })
	}
}

func (h *Hub) unsubscribe(ch chan telemetry.Table) {
	h.mu.Lock()
	delete(h.clients, ch)
	count := len(h.clients)
	close(ch)
	h.mu.Unlock()
	metrics.SetStreamClients(count)
}

// Publish delivers table to every client with buffer space.
func (h *Hub) Publish(table telemetry.Table) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- table:
			metrics.IncStreamMessage(metrics.StreamDelivered)
		default:
			metrics.IncStreamMessage(metrics.StreamDropped)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
