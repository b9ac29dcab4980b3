package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Info("analysis.status", map[string]any{"user_id": "user-1", "state": "ready"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "analysis.status" {
		t.Fatalf("expected msg field, got %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("expected level info, got %v", entry["level"])
	}
	if entry["user_id"] != "user-1" || entry["state"] != "ready" {
		t.Fatalf("expected fields to be flattened, got %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts field")
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "bogus")
	t.Cleanup(func() { Configure(os.Stdout, "info") })

	Debug("noisy", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be dropped, got %s", buf.String())
	}
}
