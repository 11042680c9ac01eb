package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telemetry-console/internal/auth"
	telemetry "telemetry-console/internal/telemetry/domain"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSegmentCommand(t *testing.T) {
	out, err := run(t, "", "segment", "TotalACOutputActivePower", "BatteryVoltage")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	want := "TotalACOutputActivePower\tTotal AC Output Active Power\nBatteryVoltage\tBattery Voltage\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}

	out, err = run(t, "", "segment", "--plain", "PVInputVoltage")
	if err != nil {
		t.Fatalf("segment --plain: %v", err)
	}
	if out != "PV Input Voltage\n" {
		t.Fatalf("expected plain label, got %q", out)
	}
}

func TestSegmentCommandOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	if err := os.WriteFile(path, []byte("overrides:\n  InputACPV: Input AC PV\n"), 0o600); err != nil {
		t.Fatalf("write labels: %v", err)
	}
	out, err := run(t, "", "segment", "--plain", "--labels", path, "InputACPV")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if out != "Input AC PV\n" {
		t.Fatalf("expected override, got %q", out)
	}
}

func TestSegmentCommandRequiresArgs(t *testing.T) {
	if _, err := run(t, "", "segment"); err == nil {
		t.Fatal("expected error without identifiers")
	}
}

const snapshotJSON = `{"deviceId":"inverter-1","ts":1767261600,"values":{"ACInputVoltage":230.1,"InverterStatus":{"MPPT":"on"}}}`

func TestTableCommandFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(snapshotJSON), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	out, err := run(t, "", "table", path)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, want := range []string{"AC Input Voltage", "Inverter Status", "230.1", "(2 fields)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table output:\n%s", want, out)
		}
	}

	out, err = run(t, "", "table", "--format", "json", path)
	if err != nil {
		t.Fatalf("table json: %v", err)
	}
	var table telemetry.Table
	if err := json.Unmarshal([]byte(out), &table); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if table.DeviceID != "inverter-1" || len(table.Fields) != 2 || table.TS.Unix() != 1767261600 {
		t.Fatalf("unexpected json table: %+v", table)
	}

	out, err = run(t, "", "table", "-f", "csv", path)
	if err != nil {
		t.Fatalf("table csv: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("read csv output: %v", err)
	}
	if len(records) != 3 || records[2][2] != "InverterStatus.MPPT" {
		t.Fatalf("unexpected csv output: %v", records)
	}

	out, err = run(t, "", "table", "-f", "md", path)
	if err != nil {
		t.Fatalf("table md: %v", err)
	}
	if !strings.Contains(out, "|  | AC Input Voltage | 230.1 |") {
		t.Fatalf("unexpected markdown output:\n%s", out)
	}

	if _, err := run(t, "", "table", "-f", "yaml", path); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestTableCommandReadsBareValuesFromStdin(t *testing.T) {
	out, err := run(t, `{"BatteryStateOfCharge":87,"MPPTMode":"auto"}`, "table", "-f", "md", "-")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if !strings.Contains(out, "| Battery State Of Charge | 87 |") || !strings.Contains(out, "| MPPT Mode | auto |") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTableCommandRejectsInvalidJSON(t *testing.T) {
	if _, err := run(t, "{", "table", "-"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := run(t, "", "table", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := run(t, "", "token"); err == nil {
		t.Fatal("expected error without secret")
	}

	t.Setenv("AUTH_JWT_SECRET", "secret")
	if _, err := run(t, "", "token", "--role", "root"); err == nil {
		t.Fatal("expected error for unknown role")
	}

	out, err := run(t, "", "token", "--tenant", "tenant-7", "--role", "Operator")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(out), []byte("secret"))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.TenantID != "tenant-7" || claims.Role != string(auth.RoleOperator) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
