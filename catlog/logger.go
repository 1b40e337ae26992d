// Package catlog provides the runtime's ambient structured logging,
// generalized from reactor/logging.go's package-level-logger pattern
// (SetStructuredLogger/getGlobalLogger, LogEntry, LogLevel) onto
// github.com/joeycumines/logiface as the frontend, with
// github.com/joeycumines/stumpy as the default zero-allocation backend
// and github.com/joeycumines/izerolog (wrapping github.com/rs/zerolog)
// as an optional backend — selected the way logiface-zerolog's own
// WithZerolog option is selected, per §6's CAT_LOG_ERROR_OUTPUT
// environment surface.
package catlog

import (
	"fmt"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/rs/zerolog"
)

// Logger is the ambient logging seam every package in this module logs
// through. It deliberately exposes only the printf-style surface
// reactor/logging.go's bespoke Logger interface offered (Debug/Info/
// Warn/Error/Fatal), so call sites never need to know which logiface
// Event type backs the active logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// erasedLogger adapts a type-erased *logiface.Logger[logiface.Event] to
// the Logger interface above.
type erasedLogger struct {
	l *logiface.Logger[logiface.Event]
}

func (e erasedLogger) log(level logiface.Level, format string, args ...any) {
	e.l.Build(level).Logf(format, args...)
}

func (e erasedLogger) Debug(format string, args ...any) { e.log(logiface.LevelDebug, format, args...) }
func (e erasedLogger) Info(format string, args ...any)  { e.log(logiface.LevelInformational, format, args...) }
func (e erasedLogger) Warn(format string, args ...any)  { e.log(logiface.LevelWarning, format, args...) }
func (e erasedLogger) Error(format string, args ...any) { e.log(logiface.LevelError, format, args...) }
func (e erasedLogger) Fatal(format string, args ...any) { e.log(logiface.LevelAlert, format, args...) }

// Backend selects which logiface implementation package backs a
// Logger, matching §6's CAT_LOG_ERROR_OUTPUT values.
type Backend int

const (
	// BackendStumpy is the default: stumpy's native zero-allocation JSON
	// encoder, writing to Writer.
	BackendStumpy Backend = iota
	// BackendZerolog routes through izerolog onto a zerolog.Logger
	// writing timestamped JSON lines to Writer.
	BackendZerolog
)

// Config controls New.
type Config struct {
	Backend Backend
	Level   logiface.Level
	Writer  *os.File // defaults to os.Stderr
}

// New builds a Logger per cfg. Each backend is constructed at its own
// concrete Event type (stumpy's *stumpy.Event or izerolog's
// *izerolog.Event) and then erased via Logger.Logger(), since
// logiface.Option values are not generically convertible across Event
// types.
func New(cfg Config) Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	switch cfg.Backend {
	case BackendZerolog:
		zl := zerolog.New(writer).With().Timestamp().Logger()
		l := logiface.New(izerolog.WithZerolog(zl), logiface.WithLevel[*izerolog.Event](cfg.Level))
		return erasedLogger{l: l.Logger()}
	default:
		l := logiface.New(stumpy.WithStumpy(stumpy.WithWriter(writer)), logiface.WithLevel[*stumpy.Event](cfg.Level))
		return erasedLogger{l: l.Logger()}
	}
}

var global Logger = New(Config{Level: logiface.LevelInformational})

// Default returns the process-wide Logger: a stumpy logger at the
// informational level writing to os.Stderr until SetDefault replaces
// it (see catconfig.Config.ApplyLogging).
func Default() Logger { return global }

// SetDefault replaces the process-wide Logger, e.g. after catconfig
// parses CAT_LOG_* environment variables.
func SetDefault(l Logger) { global = l }

// stdLogger is a trivial Logger backed directly by fmt.Fprintf, used as
// a last-resort fallback (and by tests that want output without
// pulling in a logiface backend).
type stdLogger struct{ w *os.File }

// NewStd returns a Logger that writes plain lines to w with no
// structured encoding — grounded on the same "fallback when no backend
// configured" idea as reactor/logging.go's defaultLogger.
func NewStd(w *os.File) Logger { return stdLogger{w: w} }

func (s stdLogger) write(level, format string, args ...any) {
	fmt.Fprintf(s.w, "["+level+"] "+format+"\n", args...)
}

func (s stdLogger) Debug(format string, args ...any) { s.write("debug", format, args...) }
func (s stdLogger) Info(format string, args ...any)  { s.write("info", format, args...) }
func (s stdLogger) Warn(format string, args ...any)  { s.write("warn", format, args...) }
func (s stdLogger) Error(format string, args ...any) { s.write("error", format, args...) }
func (s stdLogger) Fatal(format string, args ...any) { s.write("fatal", format, args...) }
