// internal/logger/logger.go
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu    sync.RWMutex
	level = new(slog.LevelVar)
	base  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// Init initializes the logger with the default console output
func Init() {
	Setup(os.Stderr, nil)
}

// Setup routes log records to the console as text and, when file is not nil,
// to file as JSON lines.
func Setup(console io.Writer, file io.Writer) {
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(console, opts)}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	l := slog.New(slogmulti.Fanout(handlers...))

	mu.Lock()
	base = l
	mu.Unlock()

	slog.SetDefault(l)
}

// SetOutput sends all log records to w only
func SetOutput(w io.Writer) {
	Setup(w, nil)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Slog returns the underlying structured logger
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	logf(slog.LevelDebug, format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	logf(slog.LevelInfo, format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	logf(slog.LevelWarn, format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	logf(slog.LevelError, format, v...)
}

func logf(lvl slog.Level, format string, v ...interface{}) {
	l := Slog()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	l.Log(context.Background(), lvl, fmt.Sprintf(format, v...))
}
