// Package catconfig parses the process-wide environment surface of §6
// into a typed Config. Settings that need to be made programmatically
// instead of via the environment are fields of Config itself; this
// package defines no functional options.
package catconfig

import (
	"os"
	"strconv"
	"strings"

	"github.com/joeycumines/logiface"

	"github.com/libcat/cat/catlog"
)

// Config is the parsed form of §6's recognized environment keys.
type Config struct {
	// LogErrorOutput is CAT_LOG_ERROR_OUTPUT: "stdout" or "stderr"
	// (default "stderr").
	LogErrorOutput string
	// ShowTimestamps is CAT_LOG_SHOW_TIMESTAMPS.
	ShowTimestamps bool
	// ShowTimestampsAsRelative is CAT_LOG_SHOW_TIMESTAMPS_AS_RELATIVE.
	ShowTimestampsAsRelative bool
	// TimestampsFormat is CAT_LOG_TIMESTAMPS_FORMAT (Go time layout).
	TimestampsFormat string
	// ShowSourcePosition is CAT_LOG_SHOW_SOURCE_POSITION.
	ShowSourcePosition bool
	// StrSize is CAT_LOG_STR_SIZE: max length of quoted strings in logs
	// (0 means unbounded).
	StrSize int
	// UseValgrind is USE_VALGRIND: a test-only hint that the process is
	// running under Valgrind (relaxes timing-sensitive assertions).
	UseValgrind bool
	// Offline is OFFLINE: a test-only hint that network-touching tests
	// should be skipped.
	Offline bool
}

const (
	envLogErrorOutput           = "CAT_LOG_ERROR_OUTPUT"
	envShowTimestamps           = "CAT_LOG_SHOW_TIMESTAMPS"
	envShowTimestampsAsRelative = "CAT_LOG_SHOW_TIMESTAMPS_AS_RELATIVE"
	envTimestampsFormat         = "CAT_LOG_TIMESTAMPS_FORMAT"
	envShowSourcePosition       = "CAT_LOG_SHOW_SOURCE_POSITION"
	envStrSize                  = "CAT_LOG_STR_SIZE"
	envUseValgrind              = "USE_VALGRIND"
	envOffline                  = "OFFLINE"
)

// FromEnviron parses the current process environment into a Config,
// applying the documented defaults for anything unset or unparsable.
func FromEnviron() Config {
	cfg := Config{
		LogErrorOutput:   "stderr",
		TimestampsFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	if v, ok := os.LookupEnv(envLogErrorOutput); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "stdout" || v == "stderr" {
			cfg.LogErrorOutput = v
		}
	}
	cfg.ShowTimestamps = envBool(envShowTimestamps, false)
	cfg.ShowTimestampsAsRelative = envBool(envShowTimestampsAsRelative, false)
	if v, ok := os.LookupEnv(envTimestampsFormat); ok && v != "" {
		cfg.TimestampsFormat = v
	}
	cfg.ShowSourcePosition = envBool(envShowSourcePosition, false)
	if v, ok := os.LookupEnv(envStrSize); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.StrSize = n
		}
	}
	cfg.UseValgrind = envBool(envUseValgrind, false)
	cfg.Offline = envBool(envOffline, false)

	return cfg
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Truncate applies StrSize to s for log-field quoting, matching §6's
// "max length of quoted strings in logs". A StrSize of 0 means
// unbounded.
func (c Config) Truncate(s string) string {
	if c.StrSize <= 0 || len(s) <= c.StrSize {
		return s
	}
	return s[:c.StrSize] + "..."
}

// ApplyLogging builds a catlog.Logger from cfg and installs it as the
// process-wide default, matching cfg.LogErrorOutput/level semantics.
// backend selects the logiface implementation (catlog.BackendStumpy by
// default, catlog.BackendZerolog when CAT_LOG_ERROR_OUTPUT-style
// textual output is wanted).
func (c Config) ApplyLogging(backend catlog.Backend) {
	w := os.Stderr
	if c.LogErrorOutput == "stdout" {
		w = os.Stdout
	}
	level := logiface.LevelInformational
	if c.UseValgrind {
		// Valgrind inflates timing dramatically; keep log volume down by
		// default so assertions relying on log-line counts aren't thrown
		// off by otherwise-innocuous debug lines.
		level = logiface.LevelWarning
	}
	catlog.SetDefault(catlog.New(catlog.Config{
		Backend: backend,
		Level:   level,
		Writer:  w,
	}))
}
