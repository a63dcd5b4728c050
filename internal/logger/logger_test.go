package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func newCapturingLogger(level Level) (*StandardLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &StandardLogger{level: level, logger: log.New(&buf, "", 0)}, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStandardLoggerSuppressesBelowLevel(t *testing.T) {
	l, buf := newCapturingLogger(WarnLevel)

	l.Debug("should not appear")
	l.Info("should not appear either")
	if buf.Len() != 0 {
		t.Errorf("buffer = %q, want empty output below the configured level", buf.String())
	}

	l.Warn("this should appear")
	if !strings.Contains(buf.String(), "this should appear") {
		t.Errorf("buffer = %q, want it to contain the warn message", buf.String())
	}
}

func TestStandardLoggerFormatsKeyValuePairs(t *testing.T) {
	l, buf := newCapturingLogger(DebugLevel)

	l.Info("placed order", "pair", "BTCUSDT", "qty", 1.5)
	out := buf.String()

	if !strings.Contains(out, "INFO:") {
		t.Errorf("output = %q, want it to include the level tag", out)
	}
	if !strings.Contains(out, "pair=BTCUSDT") || !strings.Contains(out, "qty=1.5") {
		t.Errorf("output = %q, want formatted key=value pairs", out)
	}
}

func TestStandardLoggerDropsTrailingUnpairedKey(t *testing.T) {
	l, buf := newCapturingLogger(DebugLevel)

	l.Error("boom", "reason")
	out := buf.String()

	if strings.Contains(out, "reason=") {
		t.Errorf("output = %q, a dangling key with no value should be dropped", out)
	}
}

func TestNewDefaultsToInfoLevel(t *testing.T) {
	l := New("bogus")
	sl, ok := l.(*StandardLogger)
	if !ok {
		t.Fatalf("New returned %T, want *StandardLogger", l)
	}
	if sl.level != InfoLevel {
		t.Errorf("level = %v, want InfoLevel for an unrecognized level string", sl.level)
	}
}
