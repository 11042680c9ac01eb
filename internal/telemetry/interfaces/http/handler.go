package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"telemetry-console/internal/auth"
	"telemetry-console/internal/observability/metrics"
	telemetryapp "telemetry-console/internal/telemetry/application"
	telemetry "telemetry-console/internal/telemetry/domain"
	"telemetry-console/internal/telemetry/interfaces/export"
)

const maxSnapshotBody = 1 << 20

// IngestHandler accepts device snapshots.
type IngestHandler struct {
	service       *telemetryapp.Service
	logger        *log.Logger
	defaultTenant string
	now           func() time.Time
}

// IngestOption configures an IngestHandler.
type IngestOption func(*IngestHandler)

// WithDefaultTenant sets the tenant used when neither the caller identity
// nor the body names one.
func WithDefaultTenant(tenantID string) IngestOption {
	return func(h *IngestHandler) {
		h.defaultTenant = strings.TrimSpace(tenantID)
	}
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *telemetryapp.Service, logger *log.Logger, opts ...IngestOption) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("snapshot ingest: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &IngestHandler{service: service, logger: logger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// ServeHTTP handles POST /ingest/snapshots and POST /api/v1/snapshots.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ingestRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBody))
	if err := decoder.Decode(&req); err != nil {
		h.logger.Printf("snapshot ingest: decode error: %v", err)
		h.fail(start, "decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" && strings.TrimSpace(req.TenantID) == "" {
		tenantID = h.defaultTenant
	}
	snapshot, err := req.toSnapshot(tenantID, h.now)
	if err != nil {
		h.logger.Printf("snapshot ingest: invalid payload: %v", err)
		h.fail(start, "payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	table, err := h.service.Ingest(r.Context(), snapshot)
	if err != nil {
		if errors.Is(err, telemetry.ErrInvalidSnapshot) {
			h.fail(start, "payload")
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if errors.Is(err, telemetry.ErrStaleSnapshot) {
			h.fail(start, "stale")
			http.Error(w, "stale snapshot", http.StatusConflict)
			return
		}
		h.logger.Printf("snapshot ingest: store error: %v", err)
		h.fail(start, "store")
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"fields": len(table.Fields)})
}

func (h *IngestHandler) fail(start time.Time, reason string) {
	metrics.IncIngestError(reason)
	metrics.ObserveIngest(metrics.ResultError, time.Since(start))
}

type ingestRequest struct {
	TenantID string         `json:"tenantId"`
	DeviceID string         `json:"deviceId"`
	TS       int64          `json:"ts"`
	Values   map[string]any `json:"values"`
}

// toSnapshot prefers the authenticated tenant over the body tenant.
// A missing ts means "now".
func (r ingestRequest) toSnapshot(contextTenant string, now func() time.Time) (telemetry.Snapshot, error) {
	tenantID := contextTenant
	if tenantID == "" {
		tenantID = strings.TrimSpace(r.TenantID)
	}
	ts := now().UTC()
	if r.TS != 0 {
		parsed, err := parseTimestamp(r.TS)
		if err != nil {
			return telemetry.Snapshot{}, err
		}
		ts = parsed
	}
	snapshot := telemetry.Snapshot{
		TenantID: tenantID,
		DeviceID: strings.TrimSpace(r.DeviceID),
		TS:       ts,
		Values:   r.Values,
	}
	return snapshot, snapshot.Validate()
}

func parseTimestamp(value int64) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, errors.New("invalid ts")
	}
	// Accept milliseconds or seconds.
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), nil
	}
	return time.Unix(value, 0).UTC(), nil
}

// FieldsHandler serves the labelled field table of a device.
type FieldsHandler struct {
	service *telemetryapp.Service
}

// NewFieldsHandler constructs a FieldsHandler.
func NewFieldsHandler(service *telemetryapp.Service) (*FieldsHandler, error) {
	if service == nil {
		return nil, errors.New("fields handler: nil service")
	}
	return &FieldsHandler{service: service}, nil
}

// ServeHTTP handles GET /api/v1/fields?device_id=.
func (h *FieldsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	table, ok := loadTable(w, r, h.service)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(table)
}

// DevicesHandler lists devices with a stored snapshot.
type DevicesHandler struct {
	service *telemetryapp.Service
}

// NewDevicesHandler constructs a DevicesHandler.
func NewDevicesHandler(service *telemetryapp.Service) (*DevicesHandler, error) {
	if service == nil {
		return nil, errors.New("devices handler: nil service")
	}
	return &DevicesHandler{service: service}, nil
}

// ServeHTTP handles GET /api/v1/devices.
func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	devices, err := h.service.Devices(r.Context(), tenantID)
	if err != nil {
		http.Error(w, "query devices error", http.StatusInternalServerError)
		return
	}
	if devices == nil {
		devices = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"devices": devices})
}

// ExportHandler serves field table downloads.
type ExportHandler struct {
	service *telemetryapp.Service
	logger  *log.Logger
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(service *telemetryapp.Service, logger *log.Logger) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("export handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/fields/export.{csv,xlsx,pdf}?device_id=.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	format := strings.TrimPrefix(r.URL.Path, "/api/v1/fields/export.")
	contentType := export.ContentType(format)
	if contentType == "" {
		http.Error(w, "unsupported format", http.StatusNotFound)
		return
	}

	table, ok := loadTable(w, r, h.service)
	if !ok {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		return
	}
	data, err := export.Build(format, table)
	if err != nil {
		h.logger.Printf("fields export: %s error: %v", format, err)
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+table.DeviceID+"-fields."+format+"\"")
	_, _ = w.Write(data)
}

func loadTable(w http.ResponseWriter, r *http.Request, service *telemetryapp.Service) (telemetry.Table, bool) {
	if service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return telemetry.Table{}, false
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return telemetry.Table{}, false
	}
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return telemetry.Table{}, false
	}

	table, err := service.Table(r.Context(), tenantID, deviceID)
	if err != nil {
		if errors.Is(err, telemetry.ErrSnapshotNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return telemetry.Table{}, false
		}
		http.Error(w, "query fields error", http.StatusInternalServerError)
		return telemetry.Table{}, false
	}
	return table, true
}
