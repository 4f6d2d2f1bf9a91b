package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNilOutputManagerIsSafe(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("empty dir returned error: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}
	if err := om.WriteTelemetry([]WindowStats{{Tribe: "grazers"}}); err != nil {
		t.Errorf("nil manager WriteTelemetry: %v", err)
	}
	if err := om.WritePerf(PerfStats{}, 0); err != nil {
		t.Errorf("nil manager WritePerf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager Close: %v", err)
	}
}

func TestWriteTelemetryAppendsWithSingleHeader(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(filepath.Join(dir, "run"))
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	rows := []WindowStats{
		{WindowEnd: 300, Tribe: "grazers", Population: 12},
		{WindowEnd: 300, Tribe: "stalkers", Population: 4},
	}
	if err := om.WriteTelemetry(rows); err != nil {
		t.Fatalf("first write: %v", err)
	}
	rows[0].WindowEnd = 600
	rows[1].WindowEnd = 600
	if err := om.WriteTelemetry(rows); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run", "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	content := string(data)
	if strings.Count(content, "window_end") != 1 {
		t.Error("header written more than once")
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 5 { // header + 2 windows x 2 tribes
		t.Errorf("telemetry.csv has %d lines, want 5", len(lines))
	}
	if !strings.Contains(content, "grazers") || !strings.Contains(content, "stalkers") {
		t.Error("tribe names missing from output")
	}
}

func TestWritePerfProducesRows(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	if err := om.WritePerf(PerfStats{TicksPerSecond: 120}, 300); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := om.WritePerf(PerfStats{TicksPerSecond: 110}, 600); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatalf("reading perf.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("perf.csv has %d lines, want header plus 2 rows", len(lines))
	}
}
