package config

import "github.com/standardbeagle/hl/internal/types"

// ParserSettings controls how a RawRecord is projected into a Record.
// Field names are matched as case-sensitive literals.
type ParserSettings struct {
	TimeFieldNames    []string
	LevelField        LevelField
	MessageFieldNames []string
	LoggerFieldNames  []string
	CallerFieldNames  []string

	// IgnoredKeys are dropped silently instead of becoming residue fields.
	IgnoredKeys map[string]struct{}

	// NeedUnixTimestamp, when true, makes the parser eagerly convert a
	// recognized time field to (sec, nsec) instead of deferring the
	// conversion until the formatter asks for it.
	NeedUnixTimestamp bool
}

// LevelField holds an ordered list of variants; the first variant whose
// Names contains the encountered key is used to classify the value.
type LevelField struct {
	Variants []LevelVariant
}

// LevelVariant maps each Level to the textual spellings recognized for it.
type LevelVariant struct {
	Names  []string
	Values map[types.Level][]string
}

// Match returns the variant (if any) whose Names contains key.
func (lf LevelField) Match(key string) (LevelVariant, bool) {
	for _, v := range lf.Variants {
		for _, n := range v.Names {
			if n == key {
				return v, true
			}
		}
	}
	return LevelVariant{}, false
}

// Classify returns the Level whose spellings include value (compared case
// insensitively), or LevelUnset if none match.
func (v LevelVariant) Classify(value string) types.Level {
	for _, lvl := range []types.Level{types.LevelDebug, types.LevelInfo, types.LevelWarning, types.LevelError} {
		for _, spelling := range v.Values[lvl] {
			if equalFoldASCII(spelling, value) {
				return lvl
			}
		}
	}
	return types.LevelUnset
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// DefaultParserSettings returns the field-name lists recognized out of the
// box, covering the common zap/zerolog/logrus/ECS spellings.
func DefaultParserSettings() ParserSettings {
	return ParserSettings{
		TimeFieldNames:    []string{"ts", "time", "timestamp", "@timestamp"},
		MessageFieldNames: []string{"msg", "message"},
		LoggerFieldNames:  []string{"logger", "target"},
		CallerFieldNames:  []string{"caller", "source", "file"},
		LevelField: LevelField{
			Variants: []LevelVariant{
				{
					Names: []string{"level", "severity", "loglevel", "log.level"},
					Values: map[types.Level][]string{
						types.LevelDebug:   {"debug", "dbg"},
						types.LevelInfo:    {"info", "information", "inf"},
						types.LevelWarning: {"warning", "warn", "wrn"},
						types.LevelError:   {"error", "err", "fatal", "critical"},
					},
				},
			},
		},
		IgnoredKeys: map[string]struct{}{},
	}
}
