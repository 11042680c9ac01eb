package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	labelapp "telemetry-console/internal/labels/application"
)

const maxKeysPerRequest = 500

// Handler serves label lookups.
type Handler struct {
	catalog *labelapp.Catalog
}

// NewHandler constructs a Handler.
func NewHandler(catalog *labelapp.Catalog) (*Handler, error) {
	if catalog == nil {
		return nil, errors.New("labels handler: nil catalog")
	}
	return &Handler{catalog: catalog}, nil
}

// ServeHTTP handles GET /api/v1/labels?key=A&key=B (or key=A,B).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.catalog == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	keys := parseKeys(r.URL.Query()["key"])
	if len(keys) == 0 {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	if len(keys) > maxKeysPerRequest {
		http.Error(w, "too many keys", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.catalog.Labels(keys))
}

func parseKeys(values []string) []string {
	var keys []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				keys = append(keys, part)
			}
		}
	}
	return keys
}
