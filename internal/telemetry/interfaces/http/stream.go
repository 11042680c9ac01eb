package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"telemetry-console/internal/auth"
	"telemetry-console/internal/live"
)

const keepAliveInterval = 25 * time.Second

// StreamHandler serves labelled snapshot tables as server-sent events.
type StreamHandler struct {
	hub       *live.Hub
	keepAlive time.Duration
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(hub *live.Hub) (*StreamHandler, error) {
	if hub == nil {
		return nil, errors.New("stream handler: nil hub")
	}
	return &StreamHandler{hub: hub, keepAlive: keepAliveInterval}, nil
}

// ServeHTTP handles GET /api/v1/stream[?device_id=].
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID := r.URL.Query().Get("device_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	done := r.Context().Done()
	for {
		select {
		case table, ok := <-ch:
			if !ok {
				return
			}
			if table.TenantID != tenantID || (deviceID != "" && table.DeviceID != deviceID) {
				continue
			}
			payload, err := json.Marshal(table)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("event: snapshot\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case <-done:
			return
		}
	}
}
