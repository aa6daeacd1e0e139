package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
)

// Helper to extract the JSON payload from log output that includes the Go
// log prefix
func extractJSONFromLogOutput(output string) (map[string]interface{}, error) {
	var logEntry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("no log output")
	}

	line := lines[len(lines)-1]
	jsonStart := strings.Index(line, "{")
	if jsonStart == -1 {
		return nil, fmt.Errorf("no JSON found in log output: %s", line)
	}

	err := json.Unmarshal([]byte(line[jsonStart:]), &logEntry)
	return logEntry, err
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	originalLevel := defaultLogger.level
	SetLevel(INFO)
	defer SetLevel(originalLevel)

	Info("validation accepted", map[string]interface{}{
		"key_id": 42,
		"hwid":   "HWID-1",
	})

	entry, err := extractJSONFromLogOutput(buf.String())
	if err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["message"] != "validation accepted" {
		t.Errorf("Expected message 'validation accepted', got %v", entry["message"])
	}

	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected fields in log entry")
	}
	if fields["key_id"] != float64(42) {
		t.Errorf("Expected key_id 42, got %v", fields["key_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	originalLevel := defaultLogger.level
	SetLevel(ERROR)
	defer SetLevel(originalLevel)

	Debug("should not appear")
	Info("should not appear")
	Warn("should not appear")

	if buf.Len() != 0 {
		t.Errorf("Expected no output below ERROR level, got: %s", buf.String())
	}

	Error("should appear")
	if buf.Len() == 0 {
		t.Errorf("Expected ERROR output")
	}
}

func TestSanitizeFields_RedactsKeyCodes(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	originalLevel := defaultLogger.level
	SetLevel(INFO)
	defer SetLevel(originalLevel)

	Info("key created", map[string]interface{}{
		"key":         "ABCD-1234-EFGH-5678",
		"admin_token": "supersecrettoken",
		"note":        "for tester",
	})

	entry, err := extractJSONFromLogOutput(buf.String())
	if err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	fields := entry["fields"].(map[string]interface{})

	key := fields["key"].(string)
	if strings.Contains(key, "1234-EFGH") {
		t.Errorf("Expected key code to be redacted, got %s", key)
	}

	token := fields["admin_token"].(string)
	if strings.Contains(token, "persecretto") {
		t.Errorf("Expected admin token to be redacted, got %s", token)
	}

	if fields["note"] != "for tester" {
		t.Errorf("Expected note to pass through unredacted, got %v", fields["note"])
	}
}

func TestSanitizeFields_KeyIDNotRedacted(t *testing.T) {
	fields := sanitizeFields(map[string]interface{}{"key_id": int64(7)})
	if fields["key_id"] != int64(7) {
		t.Errorf("Expected key_id to pass through, got %v", fields["key_id"])
	}
}
