package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSnapshot  = errors.New("telemetry: invalid snapshot")
	ErrSnapshotNotFound = errors.New("telemetry: snapshot not found")
	// ErrStaleSnapshot reports a snapshot older than the one already stored.
	ErrStaleSnapshot = errors.New("telemetry: stale snapshot")
)

// Snapshot is the latest telemetry record reported by one device.
// Values keys are field identifiers; a value is a scalar or a one-level
// nested object of further identifiers.
type Snapshot struct {
	TenantID string
	DeviceID string
	TS       time.Time
	Values   map[string]any
}

// Validate checks required snapshot attributes.
func (s Snapshot) Validate() error {
	switch {
	case s.TenantID == "":
		return fmt.Errorf("%w: missing tenant id", ErrInvalidSnapshot)
	case s.DeviceID == "":
		return fmt.Errorf("%w: missing device id", ErrInvalidSnapshot)
	case s.TS.IsZero():
		return fmt.Errorf("%w: missing ts", ErrInvalidSnapshot)
	case len(s.Values) == 0:
		return fmt.Errorf("%w: empty values", ErrInvalidSnapshot)
	}
	return nil
}

// SnapshotRepository persists the latest snapshot per device.
type SnapshotRepository interface {
	// SaveLatest stores s unless a newer snapshot exists for the device, in
	// which case nothing is written and ErrStaleSnapshot is returned.
	SaveLatest(ctx context.Context, s Snapshot) error
	Latest(ctx context.Context, tenantID, deviceID string) (Snapshot, error)
	ListDevices(ctx context.Context, tenantID string) ([]string, error)
}
