package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	telemetry "telemetry-console/internal/telemetry/domain"
	telemetrypostgres "telemetry-console/internal/telemetry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestSnapshotRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	table := "telemetry_snapshots_it"
	repo := telemetrypostgres.NewSnapshotRepository(db, telemetrypostgres.WithTable(table))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+table)
	})

	tenantID := "tenant-it"
	deviceID := "inverter-it"
	base := time.Now().UTC().Truncate(time.Second)

	newer := telemetry.Snapshot{
		TenantID: tenantID,
		DeviceID: deviceID,
		TS:       base,
		Values: map[string]any{
			"TotalACOutputActivePower": 1500.0,
			"InverterStatus":           map[string]any{"MPPT": "on"},
		},
	}
	if err := repo.SaveLatest(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}
	older := newer
	older.TS = base.Add(-time.Minute)
	older.Values = map[string]any{"TotalACOutputActivePower": 1.0}
	if err := repo.SaveLatest(ctx, older); !errors.Is(err, telemetry.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot for older snapshot, got %v", err)
	}

	got, err := repo.Latest(ctx, tenantID, deviceID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !got.TS.Equal(base) {
		t.Fatalf("expected ts %s, got %s", base, got.TS)
	}
	if got.Values["TotalACOutputActivePower"] != 1500.0 {
		t.Fatalf("expected newer payload, got %v", got.Values)
	}

	devices, err := repo.ListDevices(ctx, tenantID)
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 1 || devices[0] != deviceID {
		t.Fatalf("unexpected devices: %v", devices)
	}
}
