package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "goaltrack.log")
	log, closeLog, err := New(Config{Level: "debug", Encoding: "json", File: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hello")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", data, err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatal("expected timestamp key")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goaltrack.log")
	log, closeLog, err := New(Config{Level: "chatty", File: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("shown")
	closeLog()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("unexpected log output: %q", data)
	}
}

func TestNewWithoutFileIsNop(t *testing.T) {
	log, closeLog, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	log.Info("discarded")
}
