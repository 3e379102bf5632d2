package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debug("debug message", nil)
	l.Info("info message", nil)
	l.Warn("warn message", nil)
	l.Error("error message", nil, errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries at or above WARN, got %d: %q", len(lines), buf.String())
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry.Level != "WARN" || entry.Message != "warn message" {
		t.Errorf("unexpected first entry: %+v", entry)
	}

	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry.Error != "boom" {
		t.Errorf("error = %q, expected wrapped error string", entry.Error)
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	l.Info("cycle complete", Fields{
		"inserted": 12,
		"source":   "eventbrite",
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry.Fields["source"] != "eventbrite" {
		t.Errorf("fields = %v", entry.Fields)
	}
	// JSON numbers decode as float64.
	if entry.Fields["inserted"] != float64(12) {
		t.Errorf("fields = %v", entry.Fields)
	}
	if entry.Timestamp == "" {
		t.Error("expected a timestamp")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
	}{
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"ERROR", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("ingest.fetch_errors")
	m.IncrCounter("ingest.fetch_errors")
	m.IncrCounter("reconcile.store_errors")

	snapshot := m.GetSnapshot()
	counters := snapshot["counters"].(map[string]int64)
	if counters["ingest.fetch_errors"] != 2 {
		t.Errorf("fetch_errors = %d", counters["ingest.fetch_errors"])
	}
	if counters["reconcile.store_errors"] != 1 {
		t.Errorf("store_errors = %d", counters["reconcile.store_errors"])
	}
}

func TestMetricsTimings(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("cycle.duration", 100*time.Millisecond)
	m.RecordTiming("cycle.duration", 300*time.Millisecond)

	snapshot := m.GetSnapshot()
	timings := snapshot["timings"].(map[string]map[string]interface{})
	stats, ok := timings["cycle.duration"]
	if !ok {
		t.Fatal("expected cycle.duration stats")
	}
	if stats["count"] != 2 {
		t.Errorf("count = %v", stats["count"])
	}
	if stats["average"] != "200ms" {
		t.Errorf("average = %v", stats["average"])
	}
	if stats["min"] != "100ms" || stats["max"] != "300ms" {
		t.Errorf("min/max = %v/%v", stats["min"], stats["max"])
	}
}
