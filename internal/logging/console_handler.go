package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

// consoleHandler writes one line per record:
//
//	2026-03-01T10:00:00Z INFO enrichment: cargo enriched cargo_id=0b1f… name=Alpha
//
// The component attribute becomes the line prefix. Attributes attached with
// WithAttrs are rendered once, when attached.
type consoleHandler struct {
	out       *syncWriter
	level     slog.Leveler
	addSource bool
	color     bool

	component string
	group     string
	preset    []byte
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{
		out:       &syncWriter{w: w},
		level:     level,
		addSource: addSource,
		color:     isTerminal(w),
	}
}

// isTerminal is true only for a bare terminal; files and tees stay plain.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component := h.component
	var attrs []byte
	record.Attrs(func(attr slog.Attr) bool {
		if h.group == "" && attr.Key == FieldComponent {
			if component == "" {
				component = attr.Value.String()
			}
			return true
		}
		attrs = appendAttr(attrs, h.group, attr)
		return true
	})

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	line := make([]byte, 0, 96+len(h.preset)+len(attrs))
	line = when.UTC().AppendFormat(line, time.RFC3339)
	line = append(line, ' ')
	line = h.appendLevel(line, record.Level)
	if component != "" {
		line = append(line, ' ')
		line = append(line, component...)
		line = append(line, ':')
	}
	line = append(line, ' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line = append(line, msg...)
	} else {
		line = append(line, "(no message)"...)
	}
	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		line = fmt.Appendf(line, " [%s:%d]", filepath.Base(frame.File), frame.Line)
	}
	line = append(line, h.preset...)
	line = append(line, attrs...)
	line = append(line, '\n')
	return h.out.write(line)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = slices.Clip(h.preset)
	for _, attr := range attrs {
		if h.group == "" && attr.Key == FieldComponent {
			// The outermost component names the line.
			if clone.component == "" {
				clone.component = attr.Value.String()
			}
			continue
		}
		clone.preset = appendAttr(clone.preset, h.group, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func (h *consoleHandler) appendLevel(line []byte, level slog.Level) []byte {
	label, color := "DEBUG", ansiGray
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", ansiRed
	case level >= slog.LevelWarn:
		label, color = "WARN", ansiYellow
	case level >= slog.LevelInfo:
		label, color = "INFO", ansiBlue
	}
	if !h.color {
		return append(line, label...)
	}
	line = append(line, color...)
	line = append(line, label...)
	return append(line, ansiReset...)
}

// appendAttr renders " key=value", flattening groups into dotted keys.
func appendAttr(dst []byte, group string, attr slog.Attr) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			group += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendAttr(dst, group, member)
		}
		return dst
	}
	dst = append(dst, ' ')
	dst = append(dst, group...)
	dst = append(dst, attr.Key...)
	dst = append(dst, '=')
	return appendValue(dst, attr.Value)
}

func appendValue(dst []byte, value slog.Value) []byte {
	switch value.Kind() {
	case slog.KindString:
		return appendText(dst, value.String())
	case slog.KindTime:
		return value.Time().UTC().AppendFormat(dst, time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return appendText(dst, err.Error())
		}
		return appendText(dst, fmt.Sprint(value.Any()))
	default:
		return append(dst, value.String()...)
	}
}

// appendText quotes values that would break key=value parsing.
func appendText(dst []byte, text string) []byte {
	if text == "" || strings.ContainsFunc(text, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.AppendQuote(dst, text)
	}
	return append(dst, text...)
}
