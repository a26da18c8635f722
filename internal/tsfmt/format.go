package tsfmt

import (
	"strconv"
	"time"

	"github.com/standardbeagle/hl/internal/types"
)

// opKind enumerates the compiled opcodes a Formatter program is made of.
type opKind int

const (
	opLiteral opKind = iota
	opYear4
	opYear2
	opMonth
	opDay
	opHour24
	opMinute
	opSecond
	opTime // %T = %H:%M:%S
	opNanos
	opNanos3
	opNanos6
	opNanos9
	opMonthAbbrev
	opMonthFull
	opWeekdayAbbrev
	opWeekdayFull
	opHour12
	opAMPM          // %p = AM/PM
	opAMPMLower     // %P = am/pm
	opDaySpace      // %e = day, space padded
	opDayOfYear     // %j
	opCentury       // %C
	opEpochSec      // %s
	opOffsetNumeric // %z
	opOffsetName    // %Z
)

type op struct {
	kind    opKind
	literal []byte
}

// Formatter is a compiled strftime-like template, ready to be applied
// repeatedly to different timestamps without re-parsing the pattern.
type Formatter struct {
	ops []op
	loc *time.Location
}

var monthAbbrev = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
var monthFull = [...]string{
	"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Compile parses a format string once, recognizing %Y %y %C %m %d %e %j
// %H %I %M %S %s %T %N %3N %6N %9N %a %A %b %h %B %p %P %z %Z plus literal
// bytes, and binds it to the named time zone ("Local", "UTC" or an IANA
// name). Unrecognized specifiers pass through literally.
func Compile(format, timeZone string) (*Formatter, error) {
	loc, err := resolveLocation(timeZone)
	if err != nil {
		return nil, err
	}
	f := &Formatter{loc: loc}
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			f.ops = append(f.ops, op{kind: opLiteral, literal: lit})
			lit = nil
		}
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			lit = append(lit, c)
			continue
		}
		i++
		spec := format[i]
		if spec == '3' || spec == '6' || spec == '9' {
			if i+1 >= len(format) || format[i+1] != 'N' {
				lit = append(lit, '%', spec)
				continue
			}
			i++
			flush()
			switch spec {
			case '3':
				f.ops = append(f.ops, op{kind: opNanos3})
			case '6':
				f.ops = append(f.ops, op{kind: opNanos6})
			case '9':
				f.ops = append(f.ops, op{kind: opNanos9})
			}
			continue
		}
		var kind opKind
		switch spec {
		case 'Y':
			kind = opYear4
		case 'y':
			kind = opYear2
		case 'C':
			kind = opCentury
		case 'm':
			kind = opMonth
		case 'd':
			kind = opDay
		case 'e':
			kind = opDaySpace
		case 'j':
			kind = opDayOfYear
		case 'H':
			kind = opHour24
		case 'I':
			kind = opHour12
		case 'M':
			kind = opMinute
		case 'S':
			kind = opSecond
		case 's':
			kind = opEpochSec
		case 'T':
			kind = opTime
		case 'N':
			kind = opNanos
		case 'b', 'h':
			kind = opMonthAbbrev
		case 'B':
			kind = opMonthFull
		case 'a':
			kind = opWeekdayAbbrev
		case 'A':
			kind = opWeekdayFull
		case 'p':
			kind = opAMPM
		case 'P':
			kind = opAMPMLower
		case 'z':
			kind = opOffsetNumeric
		case 'Z':
			kind = opOffsetName
		case '%':
			lit = append(lit, '%')
			continue
		default:
			lit = append(lit, '%', spec)
			continue
		}
		flush()
		f.ops = append(f.ops, op{kind: kind})
	}
	flush()
	return f, nil
}

// resolveLocation maps "Local"/"" to time.Local, "UTC" to time.UTC, and
// anything else to an IANA zone via time.LoadLocation.
func resolveLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	default:
		return time.LoadLocation(name)
	}
}

// Append renders ts into dst using the compiled program, returning the
// extended slice.
func (f *Formatter) Append(dst []byte, ts types.Timestamp) []byte {
	t := time.Unix(ts.Sec, int64(ts.Nsec)).In(f.loc)
	for _, o := range f.ops {
		switch o.kind {
		case opLiteral:
			dst = append(dst, o.literal...)
		case opYear4:
			dst = appendPadded(dst, t.Year(), 4)
		case opYear2:
			dst = appendPadded(dst, t.Year()%100, 2)
		case opMonth:
			dst = appendPadded(dst, int(t.Month()), 2)
		case opDay:
			dst = appendPadded(dst, t.Day(), 2)
		case opHour24:
			dst = appendPadded(dst, t.Hour(), 2)
		case opMinute:
			dst = appendPadded(dst, t.Minute(), 2)
		case opSecond:
			dst = appendPadded(dst, t.Second(), 2)
		case opTime:
			dst = appendPadded(dst, t.Hour(), 2)
			dst = append(dst, ':')
			dst = appendPadded(dst, t.Minute(), 2)
			dst = append(dst, ':')
			dst = appendPadded(dst, t.Second(), 2)
		case opNanos:
			dst = appendPadded(dst, int(ts.Nsec), 9)
		case opNanos3:
			dst = appendPadded(dst, int(ts.Nsec/1_000_000), 3)
		case opNanos6:
			dst = appendPadded(dst, int(ts.Nsec/1_000), 6)
		case opNanos9:
			dst = appendPadded(dst, int(ts.Nsec), 9)
		case opMonthAbbrev:
			dst = append(dst, monthAbbrev[t.Month()]...)
		case opMonthFull:
			dst = append(dst, monthFull[t.Month()]...)
		case opWeekdayAbbrev:
			dst = append(dst, t.Weekday().String()[:3]...)
		case opWeekdayFull:
			dst = append(dst, t.Weekday().String()...)
		case opHour12:
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			dst = appendPadded(dst, h, 2)
		case opAMPM:
			if t.Hour() < 12 {
				dst = append(dst, "AM"...)
			} else {
				dst = append(dst, "PM"...)
			}
		case opAMPMLower:
			if t.Hour() < 12 {
				dst = append(dst, "am"...)
			} else {
				dst = append(dst, "pm"...)
			}
		case opDaySpace:
			if d := t.Day(); d < 10 {
				dst = append(dst, ' ', byte('0'+d))
			} else {
				dst = appendPadded(dst, d, 2)
			}
		case opDayOfYear:
			dst = appendPadded(dst, t.YearDay(), 3)
		case opCentury:
			dst = appendPadded(dst, t.Year()/100, 2)
		case opEpochSec:
			dst = strconv.AppendInt(dst, ts.Sec, 10)
		case opOffsetNumeric:
			dst = appendNumericOffset(dst, t)
		case opOffsetName:
			name, _ := t.Zone()
			dst = append(dst, name...)
		}
	}
	return dst
}

// Format is a convenience wrapper over Append for callers that don't
// maintain their own reusable buffer.
func (f *Formatter) Format(ts types.Timestamp) string {
	return string(f.Append(nil, ts))
}

func appendNumericOffset(dst []byte, t time.Time) []byte {
	_, offset := t.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	dst = append(dst, sign)
	dst = appendPadded(dst, offset/3600, 2)
	dst = appendPadded(dst, (offset%3600)/60, 2)
	return dst
}

func appendPadded(dst []byte, v, width int) []byte {
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, s...)
}

// ReformatRFC3339 is the reformatting fast path: when the source is
// already an RFC-3339 string and the target format is the default one,
// copy digit runs directly instead of decomposing into time components.
// It reports ok=false whenever the source isn't a plain
// "YYYY-MM-DDTHH:MM:SS(.fff)?Z" value, so the caller can fall back to the
// general Append path.
func ReformatRFC3339(dst []byte, src string) (out []byte, ok bool) {
	if len(src) < 20 || src[4] != '-' || src[7] != '-' || (src[10] != 'T' && src[10] != 't') ||
		src[13] != ':' || src[16] != ':' || src[len(src)-1] != 'Z' {
		return dst, false
	}
	dst = append(dst, src[2], src[3]) // yy from YYYY
	dst = append(dst, '-')
	dst = append(dst, src[5], src[6])
	dst = append(dst, '-')
	dst = append(dst, src[8], src[9])
	dst = append(dst, ' ')
	dst = append(dst, src[11], src[12])
	dst = append(dst, ':')
	dst = append(dst, src[14], src[15])
	dst = append(dst, ':')
	dst = append(dst, src[17], src[18])
	frac := src[19 : len(src)-1]
	dst = append(dst, '.')
	if len(frac) > 0 && frac[0] == '.' {
		frac = frac[1:]
	}
	n := 0
	for n < 3 {
		if n < len(frac) {
			dst = append(dst, frac[n])
		} else {
			dst = append(dst, '0')
		}
		n++
	}
	return dst, true
}
