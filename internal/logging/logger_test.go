package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesRunTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ai", "logs", "warden.log")
	logger, err := New(Options{Path: path, Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.ForComponent("compliance").Debug("pre-check passed", "command", "/plan")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if line["run"] != logger.RunID() || line["component"] != "compliance" || line["command"] != "/plan" {
		t.Fatalf("line = %v", line)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.log")
	logger, err := New(Options{Path: path, Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Close()
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("log = %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	for _, value := range []string{"", "INFO", "debug", "warning", "error"} {
		if _, err := ParseLevel(value); err != nil {
			t.Fatalf("ParseLevel(%q): %v", value, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDiscardIsUsable(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
	if logger.RunID() == "" {
		t.Fatalf("discard logger should still carry a run id")
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
}
