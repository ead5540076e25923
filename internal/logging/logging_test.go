package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, Level: "warn"})

	l.Info("hidden", "k", "v")
	l.Warn("profile lookup failed", "userId", "u-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "profile lookup failed") || !strings.Contains(out, "userId=u-1") {
		t.Fatalf("expected warn line with keyvals, got %q", out)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, Level: "loud"})
	l.Debug("debug line")
	l.Info("info line")
	if strings.Contains(buf.String(), "debug line") {
		t.Fatalf("unexpected debug output")
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Fatalf("expected info output")
	}
}
