package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"
)

var (
	colorDebug = color.New(color.FgHiBlack)
	colorInfo  = color.New(color.FgCyan)
	colorWarn  = color.New(color.FgYellow)
	colorError = color.New(color.FgRed, color.Bold)
)

// consoleHandler renders records as single colored lines on stderr,
// keeping the structured attributes as trailing key=value pairs
type consoleHandler struct {
	level slog.Level
	attrs []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	label := colorInfo
	switch {
	case record.Level >= slog.LevelError:
		label = colorError
	case record.Level >= slog.LevelWarn:
		label = colorWarn
	case record.Level < slog.LevelInfo:
		label = colorDebug
	}

	var sb strings.Builder
	sb.WriteString(label.Sprintf("%-5s", record.Level.String()))
	sb.WriteByte(' ')
	sb.WriteString(record.Message)
	for _, attr := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", attr.Key, attr.Value)
		return true
	})
	fmt.Fprintln(os.Stderr, sb.String())
	return nil
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{level: h.level, attrs: merged}
}

func (h *consoleHandler) WithGroup(string) slog.Handler {
	return h
}

// initLogging wires the default slog logger: a colored console handler
// on stderr, fanned out to a JSON file handler when --log-file is set
func initLogging() {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}
	if noColor || !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}

	handlers := []slog.Handler{&consoleHandler{level: level}}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot open log file:", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		}
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
}
