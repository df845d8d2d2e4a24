package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, "WARNING": Warn, "error": Error, "": Info, "verbose": Info}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestZeroLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: Warn, Format: FormatJSON, App: "health-consent", Output: &buf})

	log.Info("dropped", nil)
	log.With(map[string]any{"component": "sweeper"}).Warn("consent sweep failed", map[string]any{
		"err": errors.New("db down"),
		"":    "ignored",
	})

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	for _, want := range []string{`"app":"health-consent"`, `"component":"sweeper"`, `"err":"db down"`, `"message":"consent sweep failed"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
