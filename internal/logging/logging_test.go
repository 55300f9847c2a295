package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		" off ":   silent,
		"bogus":   slog.LevelWarn,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	t.Parallel()
	if got := LevelFromVerbosity(slog.LevelWarn, 0, false); got != slog.LevelWarn {
		t.Errorf("v0 = %v", got)
	}
	if got := LevelFromVerbosity(slog.LevelWarn, 1, false); got != slog.LevelInfo {
		t.Errorf("v1 = %v", got)
	}
	if got := LevelFromVerbosity(slog.LevelDebug, 1, false); got != slog.LevelDebug {
		t.Errorf("v1 keeps a lower base, got %v", got)
	}
	if got := LevelFromVerbosity(slog.LevelWarn, 3, true); got != silent {
		t.Errorf("quiet = %v", got)
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "file", "a.xml")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record leaked: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "file=a.xml") {
		t.Errorf("missing warn record: %s", out)
	}
}
