package memory

import (
	"context"
	"sort"
	"sync"

	telemetry "telemetry-console/internal/telemetry/domain"
)

// SnapshotRepository keeps the latest snapshot per device in memory.
// Used when no database is configured and in tests.
type SnapshotRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]telemetry.Snapshot
}

// NewSnapshotRepository constructs a repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: make(map[string]map[string]telemetry.Snapshot)}
}

// SaveLatest stores the snapshot unless a newer one is already held.
// Equal timestamps overwrite.
func (r *SnapshotRepository) SaveLatest(ctx context.Context, s telemetry.Snapshot) error {
	_ = ctx
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	devices := r.data[s.TenantID]
	if devices == nil {
		devices = make(map[string]telemetry.Snapshot)
		r.data[s.TenantID] = devices
	}
	if existing, ok := devices[s.DeviceID]; ok && existing.TS.After(s.TS) {
		return telemetry.ErrStaleSnapshot
	}
	devices[s.DeviceID] = telemetry.Snapshot{
		TenantID: s.TenantID,
		DeviceID: s.DeviceID,
		TS:       s.TS.UTC(),
		Values:   copyValues(s.Values),
	}
	return nil
}

// Latest returns the stored snapshot for a device.
func (r *SnapshotRepository) Latest(ctx context.Context, tenantID, deviceID string) (telemetry.Snapshot, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[tenantID][deviceID]
	if !ok {
		return telemetry.Snapshot{}, telemetry.ErrSnapshotNotFound
	}
	s.Values = copyValues(s.Values)
	return s, nil
}

// ListDevices returns device ids with a stored snapshot, sorted.
func (r *SnapshotRepository) ListDevices(ctx context.Context, tenantID string) ([]string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	devices := make([]string, 0, len(r.data[tenantID]))
	for deviceID := range r.data[tenantID] {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices, nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		if nested, ok := value.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for k, v := range nested {
				inner[k] = v
			}
			out[key] = inner
			continue
		}
		out[key] = value
	}
	return out
}
