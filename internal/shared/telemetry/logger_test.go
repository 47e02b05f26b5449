package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestInfoWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("generation.complete", map[string]any{
		"generation_id": "gen-1",
		"match_score":   82,
		"err":           errors.New("boom"),
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["msg"] != "generation.complete" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts")
	}
	if payload["generation_id"] != "gen-1" {
		t.Fatalf("unexpected generation_id: %v", payload["generation_id"])
	}
	if payload["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["err"])
	}
}

func TestConfigureRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "error")
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("dropped", nil)
	Warn("dropped too", nil)
	Error("kept", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"msg":"kept"`) {
		t.Fatalf("unexpected line: %s", lines[0])
	}
}
