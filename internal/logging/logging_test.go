package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := Level(tt.verbosity); got != tt.want {
			t.Errorf("Level(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestVerbosityGatesOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, VerbosityQuiet)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("quiet logger emitted suppressed lines: %q", out)
	}
	if !strings.Contains(out, "WARN visible warning") {
		t.Errorf("quiet logger missing warning: %q", out)
	}
}

func TestAttrFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, VerbosityDebug)

	log.Debug("request", "method", "GET", "url", "https://api.zotero.org/users/1/items", "attempt", 0)

	out := buf.String()
	for _, want := range []string{"DEBUG request", "method=GET", "attempt=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestQuotedValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, VerbosityVerbose)

	log.Info("created", "name", "recent ML papers")

	if !strings.Contains(buf.String(), `name="recent ML papers"`) {
		t.Errorf("value with spaces not quoted: %q", buf.String())
	}
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, VerbosityVerbose).With("action", "items")

	log.Info("fetching")

	if !strings.Contains(buf.String(), "action=items") {
		t.Errorf("inherited attr missing: %q", buf.String())
	}
}
