package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/meator/android-tools-static/internal/domain/interfaces"
)

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, ColorNever, false)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	l.Info("wrote document", interfaces.F("path", "out.json"), interfaces.F("components", 2))

	want := "INFO: wrote document path=out.json components=2\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    []string
		absent  []string
	}{
		{
			name:   "default hides debug",
			want:   []string{"INFO: i", "WARN: w", "ERROR: e"},
			absent: []string{"DEBUG"},
		},
		{
			name:    "verbose shows debug",
			verbose: true,
			want:    []string{"DEBUG: d", "INFO: i", "WARN: w", "ERROR: e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewLogger(&buf, ColorNever, tt.verbose)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(out, a) {
					t.Errorf("output %q should not contain %q", out, a)
				}
			}
		})
	}
}

func TestLogger_ColorAlways(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, ColorAlways, false)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.Error("boom")

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escape in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("message missing from %q", buf.String())
	}
}

func TestLogger_AutoNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, ColorAuto, false)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.Warn("plain")

	if buf.String() != "WARN: plain\n" {
		t.Errorf("output = %q, want plain text", buf.String())
	}
}

func TestNewLogger_InvalidColor(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, "sometimes", false); err == nil {
		t.Error("NewLogger() should reject unknown color mode")
	}
}
