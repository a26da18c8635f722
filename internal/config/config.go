// Package config holds hl's runtime settings: buffer sizing, concurrency,
// cache location, parser field recognition and the theme/filter knobs that
// drive the styling and formatting packages.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/tsfmt"
	"github.com/standardbeagle/hl/internal/types"
)

// Settings is the fully-resolved configuration for one run, after defaults,
// an optional KDL config file and CLI flag overrides have all been applied.
type Settings struct {
	Concurrency     int    // 0 resolves to runtime.NumCPU()
	BufferSize      int    // segment scanner buffer size, bytes
	MaxMessageSize  int    // same as BufferSize unless overridden
	CacheDir        string // root of the index cache
	TimeFormat      string // strftime-like pattern
	TimeZone        string // "Local", "UTC", or an IANA name
	ThemeName       string
	NoColor         bool
	MinLevel        string // "debug", "info", "warning", "error", or "" (no filter)
	Since           string // RFC-3339 or epoch; "" = no lower bound
	Until           string // RFC-3339 or epoch; "" = no upper bound
	HideEmptyFields bool
	Include         []string // wildcard field-name patterns
	Exclude         []string
	Parser          ParserSettings
}

const (
	DefaultBufferSize     = 1 << 16 // 64 KiB segments by default
	DefaultMaxMessageSize = 1 << 16

	// DefaultTimeFormat is the strftime-like pattern used unless overridden;
	// the record formatter's RFC-3339 fast path is only valid when
	// TimeFormat equals this exact pattern.
	DefaultTimeFormat = "%y-%m-%d %T.%3N"
)

// Default returns the baked-in Settings used before any config file or
// flag overrides apply.
func Default() Settings {
	return Settings{
		Concurrency:    0,
		BufferSize:     DefaultBufferSize,
		MaxMessageSize: DefaultMaxMessageSize,
		CacheDir:       DefaultCacheDir(),
		TimeFormat:     DefaultTimeFormat,
		TimeZone:       "Local",
		ThemeName:      "default",
		MinLevel:       "",
		Parser:         DefaultParserSettings(),
	}
}

// ResolvedConcurrency returns Concurrency, substituting runtime.NumCPU()
// when it is zero.
func (s Settings) ResolvedConcurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// DefaultCacheDir returns <user-cache-dir>/hl, the root under which index
// caches are persisted.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "hl")
}

// ParsedMinLevel parses s.MinLevel into a types.Level, returning a
// *errz.ConfigError for anything unrecognized. An empty string resolves to
// types.LevelUnset, meaning "no filter".
func (s Settings) ParsedMinLevel() (types.Level, error) {
	return parseLevelName(s.MinLevel)
}

// ParsedTimeRange parses the Since/Until bounds into a types.TimeRange,
// accepting the same RFC-3339 and numeric-epoch forms records use.
func (s Settings) ParsedTimeRange() (types.TimeRange, error) {
	var r types.TimeRange
	if s.Since != "" {
		ts, ok := tsfmt.Parse(s.Since)
		if !ok {
			return r, errz.NewConfigError("since", s.Since, errBadTime)
		}
		r.HasSince = true
		r.Since = ts
	}
	if s.Until != "" {
		ts, ok := tsfmt.Parse(s.Until)
		if !ok {
			return r, errz.NewConfigError("until", s.Until, errBadTime)
		}
		r.HasUntil = true
		r.Until = ts
	}
	return r, nil
}

var errBadTime = errUnknown("unrecognized timestamp")

func parseLevelName(name string) (types.Level, error) {
	switch name {
	case "":
		return types.LevelUnset, nil
	case "debug":
		return types.LevelDebug, nil
	case "info":
		return types.LevelInfo, nil
	case "warning", "warn":
		return types.LevelWarning, nil
	case "error":
		return types.LevelError, nil
	default:
		return types.LevelUnset, errz.NewConfigError("level", name, errUnknownLevel)
	}
}

var errUnknownLevel = errUnknown("unrecognized level name")

type errUnknown string

func (e errUnknown) Error() string { return string(e) }
