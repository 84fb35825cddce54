// Package logger is a process-wide slog logger with printf helpers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]

	formatMu     sync.Mutex
	recordFormat = "text"
)

func init() {
	current.Store(build(os.Stdout, recordFormat))
}

func build(w io.Writer, fmtName string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &level}
	if fmtName == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetOutput redirects records to w in the current format.
func SetOutput(w io.Writer) {
	formatMu.Lock()
	defer formatMu.Unlock()
	current.Store(build(w, recordFormat))
}

// SetFormat selects "text" or "json" records and redirects them to w.
func SetFormat(name string, w io.Writer) {
	formatMu.Lock()
	defer formatMu.Unlock()
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		recordFormat = "json"
	} else {
		recordFormat = "text"
	}
	current.Store(build(w, recordFormat))
}

// SetLevel accepts debug, info, warn(ing) or error; anything else is info.
func SetLevel(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		l = slog.LevelInfo
	}
	level.Set(l)
}

// With returns a logger carrying attrs, for key/value call sites.
func With(args ...any) *slog.Logger {
	return current.Load().With(args...)
}

func logf(l slog.Level, msg string, v []any) {
	lg := current.Load()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	if len(v) > 0 {
		msg = fmt.Sprintf(msg, v...)
	}
	lg.Log(context.Background(), l, msg)
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

// InfoBlock logs a multi-line block one record per non-empty line.
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line = strings.TrimRight(line, " \t"); line != "" {
			logf(slog.LevelInfo, line, nil)
		}
	}
}
