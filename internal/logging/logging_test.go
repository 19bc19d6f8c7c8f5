package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Component(l, "classifier").WithField("chunk", 3).Debug("processed")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "classifier" {
		t.Fatalf("component = %v, want classifier", entry["component"])
	}
	if entry["msg"] != "processed" {
		t.Fatalf("msg = %v", entry["msg"])
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "text", nil); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestLevelFiltersEntries(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "text", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestComponentNilLoggerDiscards(t *testing.T) {
	Component(nil, "x").Error("nowhere")
}
