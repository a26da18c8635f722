// Package tsfmt parses and formats Timestamp values: RFC-3339 text or a
// magnitude-dispatched numeric epoch on the input side, a compiled
// strftime-like opcode program on the output side.
package tsfmt

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/hl/internal/types"
)

// Parse recognizes an unquoted textual or numeric timestamp value (the
// bytes already stripped of surrounding quotes by the caller for the
// textual case; ParseField below handles both forms straight from a raw
// JSON value).
func Parse(s string) (types.Timestamp, bool) {
	if s == "" {
		return types.Timestamp{}, false
	}
	switch s[0] {
	case '"':
		inner := s
		if len(s) >= 2 && s[len(s)-1] == '"' {
			inner = s[1 : len(s)-1]
		}
		return parseRFC3339(inner)
	case '-', '+', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if ts, ok := parseNumeric(s); ok {
			return ts, true
		}
		return parseRFC3339(s)
	default:
		return parseRFC3339(s)
	}
}

// ParseField parses the raw JSON bytes of a recognized time field: a quoted
// RFC-3339 string or a bare numeric literal.
func ParseField(raw []byte) (types.Timestamp, bool) {
	return Parse(string(raw))
}

// parseNumeric interprets an integer value as seconds, milliseconds,
// microseconds or nanoseconds since the Unix epoch depending on its
// magnitude; a value containing a decimal point is treated as fractional
// seconds.
func parseNumeric(s string) (types.Timestamp, bool) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Timestamp{}, false
		}
		sec := int64(f)
		frac := f - float64(sec)
		if frac < 0 {
			frac = 0
		}
		return types.Timestamp{Sec: sec, Nsec: uint32(frac * 1e9)}, true
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return types.Timestamp{}, false
	}
	neg := n < 0
	abs := n
	if neg {
		abs = -n
	}
	switch {
	case abs >= 1_000_000_000_000_000_000:
		return types.Timestamp{Sec: n / 1_000_000_000, Nsec: uint32(mod(n, 1_000_000_000))}, true
	case abs >= 1_000_000_000_000_000:
		us := n
		return types.Timestamp{Sec: us / 1_000_000, Nsec: uint32(mod(us, 1_000_000)) * 1_000}, true
	case abs >= 1_000_000_000_000:
		ms := n
		return types.Timestamp{Sec: ms / 1_000, Nsec: uint32(mod(ms, 1_000)) * 1_000_000}, true
	default:
		return types.Timestamp{Sec: n}, true
	}
}

// mod returns the non-negative remainder of n/d, handling negative n the
// way a civil timestamp split needs (floor division).
func mod(n, d int64) int64 {
	m := n % d
	if m < 0 {
		m += d
	}
	return m
}

// parseRFC3339 parses an RFC-3339 / ISO-8601 timestamp, with an optional
// sub-second fraction of any length and an optional offset; an absent
// offset is assumed to be UTC.
func parseRFC3339(s string) (types.Timestamp, bool) {
	if len(s) < 19 {
		return types.Timestamp{}, false
	}
	var year, month, day, hour, min_, sec int
	if !digits4(s[0:4], &year) || s[4] != '-' ||
		!digits2(s[5:7], &month) || s[7] != '-' ||
		!digits2(s[8:10], &day) ||
		(s[10] != 'T' && s[10] != 't' && s[10] != ' ') ||
		!digits2(s[11:13], &hour) || s[13] != ':' ||
		!digits2(s[14:16], &min_) || s[16] != ':' ||
		!digits2(s[17:19], &sec) {
		return types.Timestamp{}, false
	}

	rest := s[19:]
	var nsec uint32
	if len(rest) > 0 && rest[0] == '.' {
		i := 1
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		frac := rest[1:i]
		nsec = fracToNanos(frac)
		rest = rest[i:]
	}

	offsetSec := 0
	hasOffset := false
	switch {
	case len(rest) == 0:
	case rest[0] == 'Z' || rest[0] == 'z':
		hasOffset = true
	case rest[0] == '+' || rest[0] == '-':
		sign := 1
		if rest[0] == '-' {
			sign = -1
		}
		body := rest[1:]
		body = strings.ReplaceAll(body, ":", "")
		if len(body) < 4 {
			return types.Timestamp{}, false
		}
		var oh, om int
		if !digits2(body[0:2], &oh) || !digits2(body[2:4], &om) {
			return types.Timestamp{}, false
		}
		offsetSec = sign * (oh*3600 + om*60)
		hasOffset = true
	default:
		return types.Timestamp{}, false
	}
	_ = hasOffset

	sec64 := daysFromCivil(year, month, day)*86400 + int64(hour)*3600 + int64(min_)*60 + int64(sec) - int64(offsetSec)
	return types.Timestamp{Sec: sec64, Nsec: nsec}, true
}

func fracToNanos(frac string) uint32 {
	if len(frac) > 9 {
		frac = frac[:9]
	}
	n, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	for i := len(frac); i < 9; i++ {
		n *= 10
	}
	return uint32(n)
}

func digits2(s string, out *int) bool {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return false
	}
	*out = int(s[0]-'0')*10 + int(s[1]-'0')
	return true
}

func digits4(s string, out *int) bool {
	if len(s) != 4 {
		return false
	}
	v := 0
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		v = v*10 + int(s[i]-'0')
	}
	*out = v
	return true
}

// daysFromCivil converts a proleptic Gregorian y-m-d to a day count since
// the Unix epoch (1970-01-01), using Howard Hinnant's civil_from_days
// inverse algorithm.
func daysFromCivil(y, m, d int) int64 {
	yy := int64(y)
	if m <= 2 {
		yy--
	}
	era := yy
	if yy < 0 {
		era = yy - 399
	}
	era /= 400
	yoe := yy - era*400
	var mp int64
	if int64(m) > 2 {
		mp = int64(m) - 3
	} else {
		mp = int64(m) + 9
	}
	doy := (153*mp+2)/5 + int64(d) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}
