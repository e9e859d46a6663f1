// Package console renders leveled log lines on a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/meator/android-tools-static/internal/domain/interfaces"
)

// Color modes accepted by --color
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Level orders log severities
type Level int

// Log levels
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger writes `LEVEL: msg key=value ...` lines to a writer
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	min    Level
	styles [len(levelNames)]lipgloss.Style
}

var _ interfaces.Logger = (*Logger)(nil)

// NewLogger creates a logger. color is one of ColorAuto, ColorAlways or
// ColorNever; auto enables color only when out is a terminal and NO_COLOR
// is unset.
func NewLogger(out io.Writer, color string, verbose bool) (*Logger, error) {
	enabled, err := colorEnabled(out, color)
	if err != nil {
		return nil, err
	}

	renderer := lipgloss.NewRenderer(out)
	if enabled {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	l := &Logger{out: out, min: LevelInfo}
	if verbose {
		l.min = LevelDebug
	}
	l.styles[LevelDebug] = renderer.NewStyle().Faint(true)
	l.styles[LevelInfo] = renderer.NewStyle().Foreground(lipgloss.Color("6"))
	l.styles[LevelWarn] = renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	l.styles[LevelError] = renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	return l, nil
}

func colorEnabled(out io.Writer, color string) (bool, error) {
	switch color {
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	case ColorAuto, "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := out.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	default:
		return false, fmt.Errorf("invalid color mode %q (want %s, %s or %s)", color, ColorAuto, ColorAlways, ColorNever)
	}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log(LevelError, msg, fields)
}

func (l *Logger) log(level Level, msg string, fields []interfaces.Field) {
	if level < l.min {
		return
	}

	var b strings.Builder
	b.WriteString(l.styles[level].Render(level.String() + ":"))
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}
