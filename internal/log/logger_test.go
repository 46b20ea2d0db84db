package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func jsonLogger(buf *bytes.Buffer, level Level) *Logger {
	return New(Config{
		Level:       level,
		Format:      FormatJSON,
		Output:      NewOutput(buf),
		ServiceName: "amsab",
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		log   func(*Logger)
		want  bool
	}{
		{"debug suppressed at info", LevelInfo, func(l *Logger) { l.Debug("x") }, false},
		{"info passes at info", LevelInfo, func(l *Logger) { l.Info("x") }, true},
		{"warn suppressed at error", LevelError, func(l *Logger) { l.Warn("x") }, false},
		{"error passes at warn", LevelWarn, func(l *Logger) { l.Error("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(jsonLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComponentAndPlanTags(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, LevelInfo).Component("channel").WithPlan("p-1")

	logger.Info("connected", "attempt", 2)

	entry := decode(t, &buf)
	if entry["component"] != "channel" {
		t.Errorf("component = %v, want channel", entry["component"])
	}
	if entry["plan_id"] != "p-1" {
		t.Errorf("plan_id = %v, want p-1", entry["plan_id"])
	}
	if entry["service"] != "amsab" {
		t.Errorf("service = %v, want amsab", entry["service"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
}

func TestWithError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantSuggs bool
	}{
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
		},
		{
			name:     "coded error",
			err:      errors.New(errors.ErrCodeEmptyGoal, "goal text is empty"),
			wantCode: "VALIDATION-002",
		},
		{
			name:      "wrapped coded error with suggestions",
			err:       fmt.Errorf("submit: %w", errors.NewEmptyGoalError()),
			wantCode:  "VALIDATION-002",
			wantSuggs: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			jsonLogger(&buf, LevelInfo).WithError(tt.err).Info("test")

			entry := decode(t, &buf)
			if _, ok := entry["error"]; !ok {
				t.Error("expected error field")
			}

			code, _ := entry["error_code"].(string)
			if code != tt.wantCode {
				t.Errorf("error_code = %q, want %q", code, tt.wantCode)
			}

			if _, ok := entry["suggestions"]; ok != tt.wantSuggs {
				t.Errorf("suggestions present = %v, want %v", ok, tt.wantSuggs)
			}
		})
	}
}

func TestWithErrorNil(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, LevelInfo)

	if logger.WithError(nil) != logger {
		t.Error("WithError(nil) should return the receiver")
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	err := errors.NewCommandFailedError("kill plan", fmt.Errorf("status 500")).
		WithDocs("https://example.com/kill")

	jsonLogger(&buf, LevelInfo).LogError("kill failed", err)

	entry := decode(t, &buf)
	if entry["msg"] != "kill failed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["error_code"] != "COMMAND-001" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if entry["docs_url"] != "https://example.com/kill" {
		t.Errorf("docs_url = %v", entry["docs_url"])
	}
	if entry["cause"] != "status 500" {
		t.Errorf("cause = %v", entry["cause"])
	}
}

func TestLogErrorNil(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, LevelInfo).LogError("nothing", nil)

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestTextFormatOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatText, Output: NewOutput(&buf)})

	logger.Info("frame dropped", "reason", "malformed")

	out := buf.String()
	if !strings.Contains(out, "msg=\"frame dropped\"") || !strings.Contains(out, "reason=malformed") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestConfigFrom(t *testing.T) {
	var buf bytes.Buffer
	cfg := ConfigFrom("DEBUG", "json", &buf)

	if cfg.Level != LevelDebug {
		t.Errorf("level = %v, want DEBUG", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("format = %v, want json", cfg.Format)
	}
	if !cfg.AddSource {
		t.Error("debug level should add source")
	}
	if cfg.Output.Writer() != &buf {
		t.Error("output writer not applied")
	}

	fallback := ConfigFrom("nonsense", "yaml", nil)
	if fallback.Level != LevelInfo || fallback.Format != FormatText {
		t.Errorf("unexpected fallback config %+v", fallback)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	custom := Discard()
	SetDefaultLogger(custom)
	defer SetDefaultLogger(nil)

	if DefaultLogger() != custom {
		t.Error("DefaultLogger should return the configured logger")
	}

	SetDefaultLogger(nil)
	if DefaultLogger() == nil {
		t.Error("DefaultLogger should lazily create a logger")
	}
}

func TestDefaultLoggerFirstUseIsShared(t *testing.T) {
	SetDefaultLogger(nil)
	defer SetDefaultLogger(nil)

	got := make(chan *Logger, 8)
	for range 8 {
		go func() { got <- DefaultLogger() }()
	}
	first := <-got
	for range 7 {
		if l := <-got; l != first {
			t.Fatal("concurrent first use created more than one logger")
		}
	}
}
