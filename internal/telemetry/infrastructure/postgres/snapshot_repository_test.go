package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	telemetry "telemetry-console/internal/telemetry/domain"
)

func TestSnapshotRepository_SaveLatest(t *testing.T) {
	ts := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	snapshot := telemetry.Snapshot{
		TenantID: "tenant-1",
		DeviceID: "inverter-1",
		TS:       ts,
		Values: map[string]any{
			"BatteryVoltage": 52.4,
			"InverterStatus": map[string]any{"MPPT": "on"},
		},
	}

	tests := []struct {
		name      string
		snapshot  telemetry.Snapshot
		setupMock func(mock sqlmock.Sqlmock)
		expectErr bool
		wantErr   error
	}{
		{
			name:     "upsert guarded by ts",
			snapshot: snapshot,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO telemetry_snapshots .* ON CONFLICT \(tenant_id, device_id\) .* WHERE telemetry_snapshots.ts <= EXCLUDED.ts`).
					WithArgs("tenant-1", "inverter-1", ts, `{"BatteryVoltage":52.4,"InverterStatus":{"MPPT":"on"}}`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:     "older ts leaves the row untouched",
			snapshot: snapshot,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO telemetry_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectErr: true,
			wantErr:   telemetry.ErrStaleSnapshot,
		},
		{
			name:     "exec error",
			snapshot: snapshot,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO telemetry_snapshots").WillReturnError(assert.AnError)
			},
			expectErr: true,
		},
		{
			name:      "invalid snapshot never reaches db",
			snapshot:  telemetry.Snapshot{TenantID: "tenant-1"},
			setupMock: func(mock sqlmock.Sqlmock) {},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			repo := NewSnapshotRepository(db)
			err = repo.SaveLatest(context.Background(), tt.snapshot)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSnapshotRepository_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT ts, payload FROM telemetry_snapshots").
		WithArgs("tenant-1", "inverter-1").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "payload"}).
			AddRow(ts, []byte(`{"ACInputVoltage":"230.1","InverterStatus":{"ACCharging":"off"}}`)))

	repo := NewSnapshotRepository(db)
	got, err := repo.Latest(context.Background(), "tenant-1", "inverter-1")
	require.NoError(t, err)
	assert.Equal(t, "inverter-1", got.DeviceID)
	assert.True(t, got.TS.Equal(ts))
	assert.Equal(t, "230.1", got.Values["ACInputVoltage"])
	assert.Equal(t, map[string]any{"ACCharging": "off"}, got.Values["InverterStatus"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_LatestNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT ts, payload FROM custom_snapshots").
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewSnapshotRepository(db, WithTable("custom_snapshots"))
	_, err = repo.Latest(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, telemetry.ErrSnapshotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_ListDevices(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT device_id FROM telemetry_snapshots").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("inverter-1").AddRow("inverter-2"))

	repo := NewSnapshotRepository(db)
	devices, err := repo.ListDevices(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"inverter-1", "inverter-2"}, devices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS telemetry_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSnapshotRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepository_NilDB(t *testing.T) {
	repo := NewSnapshotRepository(nil)
	assert.Error(t, repo.SaveLatest(context.Background(), telemetry.Snapshot{}))
	_, err := repo.Latest(context.Background(), "t", "d")
	assert.Error(t, err)
	_, err = repo.ListDevices(context.Background(), "t")
	assert.Error(t, err)
}
