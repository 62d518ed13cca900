package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Leveled logger shared by the service binaries.
// - printf-style helpers (Debugf/Infof/Warnf/Errorf/Fatalf) for call sites that just need a line
// - With/Get for structured events backed by zerolog

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu    sync.RWMutex
	level Level          = LevelInfo
	zlog  zerolog.Logger = newZerolog(os.Stdout, "")
)

func newZerolog(w io.Writer, env string) zerolog.Logger {
	if env == "development" || env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).With().Timestamp().Str("service", "memoryvista").Logger()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(l)
	zlog = zlog.Level(zerologLevel(level))
}

// Configure switches the output format. Development environments get console output,
// everything else writes JSON lines.
func Configure(env string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	zlog = newZerolog(w, env).Level(zerologLevel(level))
}

func parseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zlog
}

// Get returns the structured logger.
func Get() *zerolog.Logger {
	l := current()
	return &l
}

// With returns a child logger carrying the given fields.
func With(fields map[string]interface{}) zerolog.Logger {
	return current().With().Fields(fields).Logger()
}

func Debugf(format string, v ...interface{}) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	l := current()
	l.Info().Msg(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	l := current()
	l.Warn().Msg(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	l := current()
	l.Error().Msg(fmt.Sprintf(format, v...))
}

func Fatalf(format string, v ...interface{}) {
	l := current()
	l.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
