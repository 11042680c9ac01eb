package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	telemetry "telemetry-console/internal/telemetry/domain"
)

const defaultSnapshotTable = "telemetry_snapshots"

// SnapshotRepository is a Postgres implementation for latest device snapshots.
type SnapshotRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SnapshotRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *SnapshotRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewSnapshotRepository constructs a repository with default table name.
func NewSnapshotRepository(db *sql.DB, opts ...RepositoryOption) *SnapshotRepository {
	repo := &SnapshotRepository{db: db, table: defaultSnapshotTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the snapshot table when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("snapshot repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	tenant_id TEXT NOT NULL,
	device_id TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant_id, device_id)
)`, r.table))
	return err
}

// SaveLatest upserts the snapshot; an older ts never overwrites a newer row.
func (r *SnapshotRepository) SaveLatest(ctx context.Context, s telemetry.Snapshot) error {
	if r == nil || r.db == nil {
		return errors.New("snapshot repo: nil db")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("snapshot repo: encode payload: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	tenant_id,
	device_id,
	ts,
	payload,
	updated_at
) VALUES (
	$1, $2, $3, $4, NOW()
)
ON CONFLICT (tenant_id, device_id)
DO UPDATE SET
	ts = EXCLUDED.ts,
	payload = EXCLUDED.payload,
	updated_at = NOW()
WHERE %s.ts <= EXCLUDED.ts`, r.table, r.table)

	result, err := r.db.ExecContext(ctx, query, s.TenantID, s.DeviceID, s.TS.UTC(), string(payload))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("snapshot repo: rows affected: %w", err)
	}
	if affected == 0 {
		return telemetry.ErrStaleSnapshot
	}
	return nil
}

// Latest loads the stored snapshot for a device.
func (r *SnapshotRepository) Latest(ctx context.Context, tenantID, deviceID string) (telemetry.Snapshot, error) {
	if r == nil || r.db == nil {
		return telemetry.Snapshot{}, errors.New("snapshot repo: nil db")
	}
	if tenantID == "" || deviceID == "" {
		return telemetry.Snapshot{}, errors.New("snapshot repo: invalid arguments")
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT ts, payload
FROM %s
WHERE tenant_id = $1 AND device_id = $2`, r.table), tenantID, deviceID)

	var (
		ts      time.Time
		payload []byte
	)
	if err := row.Scan(&ts, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return telemetry.Snapshot{}, telemetry.ErrSnapshotNotFound
		}
		return telemetry.Snapshot{}, err
	}

	values := map[string]any{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("snapshot repo: decode payload: %w", err)
	}
	return telemetry.Snapshot{
		TenantID: tenantID,
		DeviceID: deviceID,
		TS:       ts.UTC(),
		Values:   values,
	}, nil
}

// ListDevices returns device ids with a stored snapshot.
func (r *SnapshotRepository) ListDevices(ctx context.Context, tenantID string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("snapshot repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT device_id
FROM %s
WHERE tenant_id = $1
ORDER BY device_id ASC`, r.table), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var deviceID string
		if err := rows.Scan(&deviceID); err != nil {
			return nil, err
		}
		devices = append(devices, deviceID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}
