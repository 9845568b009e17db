// Package logs is the printf-style logging surface used across wlcore.
//
// It fronts a single zerolog.Logger. Call sites log as
// "pkg.Type.method key=value ..." so lines stay grep-able without a
// structured field schema per package.
package logs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog levels so callers do not import zerolog directly.
type Level = zerolog.Level

const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config controls the shared logger.
type Config struct {
	Level     Level
	Timestamp bool
	NoColor   bool
	// Bypass writes plain JSON lines instead of the console writer.
	Bypass bool
	Out    io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Timestamp: true,
		Out:       os.Stderr,
	}
}

var (
	mu     sync.RWMutex
	logger = build(DefaultConfig())
)

// Configure replaces the shared logger.
func Configure(cfg Config) {
	l := build(cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Logger returns the shared zerolog logger for middleware and libraries
// that want the structured API.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.Bypass {
		cw := zerolog.ConsoleWriter{
			Out:     out,
			NoColor: cfg.NoColor,
		}
		if cfg.Timestamp {
			cw.TimeFormat = time.RFC3339
		} else {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func Trace(msg string) { event(TraceLevel).Msg(msg) }
func Debug(msg string) { event(DebugLevel).Msg(msg) }
func Info(msg string)  { event(InfoLevel).Msg(msg) }
func Warn(msg string)  { event(WarnLevel).Msg(msg) }
func Err(msg string)   { event(ErrorLevel).Msg(msg) }

func Tracef(format string, args ...any) { event(TraceLevel).Msg(fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { event(DebugLevel).Msg(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { event(InfoLevel).Msg(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { event(WarnLevel).Msg(fmt.Sprintf(format, args...)) }
func Errf(format string, args ...any)   { event(ErrorLevel).Msg(fmt.Sprintf(format, args...)) }

// Logf writes a level-less line. Tests use it for narration that should
// show regardless of the configured level.
func Logf(format string, args ...any) {
	l := Logger()
	l.Log().Msg(fmt.Sprintf(format, args...))
}

func event(level Level) *zerolog.Event {
	l := Logger()
	return l.WithLevel(level)
}
