// Package record projects a RawRecord into a typed Record according to
// ParserSettings.
package record

import (
	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/tsfmt"
	"github.com/standardbeagle/hl/internal/types"
)

// Record is the projection of a RawRecord through ParserSettings: the
// recognized time/level/message/logger/caller slots plus the residue of
// fields that matched none of them, in original order.
type Record struct {
	HasTime           bool
	RawTime           []byte          // original JSON bytes of the time field, quotes included
	Timestamp         types.Timestamp // valid only if HasTime && TimestampResolved
	TimestampResolved bool

	Level types.Level

	HasMessage bool
	Message    []byte // raw JSON bytes (quotes included for strings)

	Logger string
	Caller string

	Fields []rawjson.KV
}

// Parse projects raw into a Record using ps. Keys are tried in the order
// they occur in raw; each key is assigned to at most one semantic slot,
// first match wins.
func Parse(raw rawjson.RawRecord, ps config.ParserSettings) Record {
	var rec Record
	levelSet := false
	for _, f := range raw.Fields {
		if !rec.HasTime && nameIn(f.Key, ps.TimeFieldNames) {
			rec.HasTime = true
			rec.RawTime = f.Raw
			if ps.NeedUnixTimestamp {
				if ts, ok := tsfmt.ParseField(f.Raw); ok {
					rec.Timestamp = ts
					rec.TimestampResolved = true
				}
			}
			continue
		}
		if variant, ok := ps.LevelField.Match(f.Key); ok && !levelSet {
			rec.Level = variant.Classify(unquote(f.Raw))
			levelSet = true
			continue
		}
		if !rec.HasMessage && nameIn(f.Key, ps.MessageFieldNames) {
			rec.HasMessage = true
			rec.Message = f.Raw
			continue
		}
		if rec.Logger == "" && nameIn(f.Key, ps.LoggerFieldNames) {
			rec.Logger = unquote(f.Raw)
			continue
		}
		if rec.Caller == "" && nameIn(f.Key, ps.CallerFieldNames) {
			rec.Caller = unquote(f.Raw)
			continue
		}
		if _, ignored := ps.IgnoredKeys[f.Key]; ignored {
			continue
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec
}

// ResolveTimestamp lazily parses RawTime when the Record was built without
// NeedUnixTimestamp.
func (r *Record) ResolveTimestamp() (types.Timestamp, bool) {
	if r.TimestampResolved {
		return r.Timestamp, true
	}
	if !r.HasTime {
		return types.Timestamp{}, false
	}
	ts, ok := tsfmt.ParseField(r.RawTime)
	if ok {
		r.Timestamp = ts
		r.TimestampResolved = true
	}
	return ts, ok
}

func nameIn(name string, list []string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// unquote strips a single layer of JSON double quotes from a raw value,
// used to compare level/logger/caller text against configured spellings.
// It does not decode backslash escapes; level and logger names never
// contain them in practice.
func unquote(raw []byte) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return string(raw[1 : len(raw)-1])
	}
	return string(raw)
}
