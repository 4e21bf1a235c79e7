package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Debug("hidden message")
	Info("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("debug message logged at INFO level: %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("info message missing from output: %q", out)
	}
}

func TestSetLevelDebugEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text")

	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug message missing at DEBUG level: %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("structured", "drive", 42)

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, line)
	}
	if record["msg"] != "structured" {
		t.Errorf("msg = %v, want %q", record["msg"], "structured")
	}
	if record["drive"] != float64(42) {
		t.Errorf("drive = %v, want 42", record["drive"])
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("NONSENSE")

	Info("still info")
	if !strings.Contains(buf.String(), "still info") {
		t.Errorf("logger broken after invalid level: %q", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}
