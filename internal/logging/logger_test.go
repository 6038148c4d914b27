package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithFormat(&buf, "debug", "json")
	logger.Debug("restore finished", "authenticated", true)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "restore finished" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
}

func TestNewWithFormatTextFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithFormat(&buf, "loud", "text")
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Fatalf("expected text handler output, got %q", out)
	}
}
