package format

import (
	"strconv"
	"time"

	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/record"
	"github.com/standardbeagle/hl/internal/style"
	"github.com/standardbeagle/hl/internal/tsfmt"
	"github.com/standardbeagle/hl/internal/types"
)

// Formatter turns a record.Record into styled output bytes: time, level
// mnemonic, logger, message, residual fields and caller, in that order, as
// an element stream through the style package's SGR processor.
type Formatter struct {
	theme           *style.Theme
	ts              *tsfmt.Formatter
	tsWidth         int
	tsFastPath      bool
	hideEmptyFields bool
	fields          *FilterNode
}

// New builds a Formatter. tsFastPath enables the RFC-3339 digit-copy fast
// path and must only be set when the time format is exactly the default
// pattern and the time zone is UTC, since the fast path copies source
// digits verbatim without reprojecting into another offset.
func New(theme *style.Theme, ts *tsfmt.Formatter, tsFastPath, hideEmptyFields bool, fields *FilterNode) *Formatter {
	return &Formatter{
		theme:           theme,
		ts:              ts,
		tsWidth:         measureWidth(ts),
		tsFastPath:      tsFastPath,
		hideEmptyFields: hideEmptyFields,
		fields:          fields,
	}
}

// measureWidth renders a worst-case reference timestamp once to establish
// the fixed column width for time alignment.
func measureWidth(ts *tsfmt.Formatter) int {
	ref := time.Date(2020, 12, 30, 23, 59, 49, 999_999_999, time.UTC)
	return len(ts.Format(types.Timestamp{Sec: ref.Unix(), Nsec: 999_999_999}))
}

// FormatRecord appends the styled rendering of rec to dst and returns the
// extended slice.
func (f *Formatter) FormatRecord(dst []byte, rec record.Record) []byte {
	p := style.NewProcessor(&dst)
	pack := f.theme.PackFor(rec.Level)

	styledElement(p, pack, style.ElementTime, func() { f.writeTime(p, rec) })
	styledElement(p, pack, style.ElementWhitespace, func() { p.WriteByte(' ') })
	styledElement(p, pack, style.ElementDelimiter, func() { p.WriteByte('|') })
	styledElement(p, pack, style.ElementLevel, func() { p.Write([]byte(rec.Level.Mnemonic())) })
	styledElement(p, pack, style.ElementDelimiter, func() { p.WriteByte('|') })

	if rec.Logger != "" {
		styledElement(p, pack, style.ElementWhitespace, func() { p.WriteByte(' ') })
		styledElement(p, pack, style.ElementLogger, func() {
			p.Write([]byte(rec.Logger))
			p.WriteByte(':')
		})
	}

	if rec.HasMessage {
		styledElement(p, pack, style.ElementMessage, func() {
			p.WriteByte(' ')
			f.formatMessage(p, pack, rec.Message)
		})
	}

	hidden := false
	for _, kv := range rec.Fields {
		if f.hideEmptyFields && isEmptyValue(kv.Raw) {
			continue
		}
		if !f.formatField(p, pack, kv.Key, kv.Raw, f.fields, Unspecified) {
			hidden = true
		}
	}
	if hidden {
		styledElement(p, pack, style.ElementEllipsis, func() { p.Write([]byte(" ...")) })
	}

	if rec.Caller != "" {
		styledElement(p, pack, style.ElementAtSign, func() { p.Write([]byte(" @ ")) })
		styledElement(p, pack, style.ElementCaller, func() { p.Write([]byte(rec.Caller)) })
	}

	p.WriteByte('\n')
	p.Close()
	return dst
}

func (f *Formatter) writeTime(p *style.Processor, rec record.Record) {
	ts, ok := rec.ResolveTimestamp()
	if !ok {
		writeCentered(p, f.tsWidth, []byte("---"))
		return
	}
	buf := make([]byte, 0, f.tsWidth)
	if f.tsFastPath && len(rec.RawTime) >= 2 && rec.RawTime[0] == '"' {
		src := string(rec.RawTime[1 : len(rec.RawTime)-1])
		if out, ok := tsfmt.ReformatRFC3339(buf, src); ok {
			writeLeftAligned(p, f.tsWidth, out)
			return
		}
	}
	writeLeftAligned(p, f.tsWidth, f.ts.Append(buf, ts))
}

func writeLeftAligned(p *style.Processor, width int, data []byte) {
	p.Write(data)
	for i := len(data); i < width; i++ {
		p.WriteByte(' ')
	}
}

func writeCentered(p *style.Processor, width int, data []byte) {
	pad := width - len(data)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	right := pad - left
	for i := 0; i < left; i++ {
		p.WriteByte(' ')
	}
	p.Write(data)
	for i := 0; i < right; i++ {
		p.WriteByte(' ')
	}
}

// formatMessage renders the top-level message value: scalars use the
// Message/Number/Boolean/Null elements unquoted; objects and arrays fall
// through to the same structural rendering as field values, with no
// include/exclude filter (there is no field name to match against for a
// message's nested content).
func (f *Formatter) formatMessage(p *style.Processor, pack *style.StylePack, raw []byte) {
	if len(raw) == 0 {
		return
	}
	switch {
	case raw[0] == '"':
		writeUnescaped(p, pack, style.ElementMessage, raw)
	case isNumberStart(raw[0]):
		styledElement(p, pack, style.ElementNumber, func() { p.Write(raw) })
	case raw[0] == 't' || raw[0] == 'f':
		styledElement(p, pack, style.ElementBoolean, func() { p.Write(raw) })
	case raw[0] == 'n':
		styledElement(p, pack, style.ElementNull, func() { p.Write(raw) })
	case raw[0] == '{':
		f.formatObjectValue(p, pack, raw, nil, Unspecified)
	case raw[0] == '[':
		f.formatArrayValue(p, pack, raw, nil, Unspecified)
	default:
		styledElement(p, pack, style.ElementMessage, func() { p.Write(raw) })
	}
}

// formatField renders " key=value" for one field. It returns false when
// the field was hidden by the include/exclude filter.
func (f *Formatter) formatField(p *style.Processor, pack *style.StylePack, key string, raw []byte, filter *FilterNode, setting Setting) bool {
	child, next, leaf := resolve(filter, key, setting)
	if next == Exclude && leaf {
		return false
	}
	styledElement(p, pack, style.ElementWhitespace, func() { p.WriteByte(' ') })
	styledElement(p, pack, style.ElementFieldKey, func() { writeFieldKey(p, key) })
	styledElement(p, pack, style.ElementEqualSign, func() { p.WriteByte('=') })
	f.formatFieldValue(p, pack, raw, child, next)
	return true
}

func writeFieldKey(p *style.Processor, key string) {
	for i := 0; i < len(key); i++ {
		b := key[i]
		if b == '_' {
			b = '-'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		p.WriteByte(b)
	}
}

// formatFieldValue renders a field's value, dispatching on the first byte
// of its raw JSON form.
func (f *Formatter) formatFieldValue(p *style.Processor, pack *style.StylePack, raw []byte, filter *FilterNode, setting Setting) {
	if len(raw) == 0 {
		return
	}
	switch {
	case raw[0] == '"':
		styledElement(p, pack, style.ElementQuote, func() { p.WriteByte('\'') })
		writeUnescaped(p, pack, style.ElementString, raw)
		styledElement(p, pack, style.ElementQuote, func() { p.WriteByte('\'') })
	case isNumberStart(raw[0]):
		styledElement(p, pack, style.ElementNumber, func() { p.Write(raw) })
	case raw[0] == 't' || raw[0] == 'f':
		styledElement(p, pack, style.ElementBoolean, func() { p.Write(raw) })
	case raw[0] == 'n':
		styledElement(p, pack, style.ElementNull, func() { p.Write(raw) })
	case raw[0] == '{':
		f.formatObjectValue(p, pack, raw, filter, setting)
	case raw[0] == '[':
		f.formatArrayValue(p, pack, raw, filter, setting)
	default:
		styledElement(p, pack, style.ElementString, func() { p.Write(raw) })
	}
}

func (f *Formatter) formatObjectValue(p *style.Processor, pack *style.StylePack, raw []byte, filter *FilterNode, setting Setting) {
	obj, err := rawjson.Parse(raw)
	if err != nil {
		styledElement(p, pack, style.ElementString, func() { p.Write(raw) })
		return
	}
	styledElement(p, pack, style.ElementBrace, func() { p.WriteByte('{') })
	hidden := false
	for _, kv := range obj.Fields {
		if !f.formatField(p, pack, kv.Key, kv.Raw, filter, setting) {
			hidden = true
		}
	}
	if hidden {
		styledElement(p, pack, style.ElementEllipsis, func() { p.Write([]byte(" ...")) })
	}
	if len(obj.Fields) != 0 {
		p.WriteByte(' ')
	}
	styledElement(p, pack, style.ElementBrace, func() { p.WriteByte('}') })
}

func (f *Formatter) formatArrayValue(p *style.Processor, pack *style.StylePack, raw []byte, filter *FilterNode, setting Setting) {
	elems, err := rawjson.ParseArray(raw)
	if err != nil {
		styledElement(p, pack, style.ElementString, func() { p.Write(raw) })
		return
	}
	if isByteString(elems) {
		styledElement(p, pack, style.ElementQuote, func() { p.Write([]byte("b'")) })
		styledElement(p, pack, style.ElementMessage, func() {
			for _, e := range elems {
				b, _ := parseByteElement(e)
				if b >= 32 {
					p.WriteByte(b)
				} else {
					styledElement(p, pack, style.ElementString, func() {
						p.WriteByte('\\')
						p.WriteByte('x')
						p.WriteByte(hexDigit[b>>4])
						p.WriteByte(hexDigit[b&0xF])
					})
				}
			}
		})
		styledElement(p, pack, style.ElementQuote, func() { p.WriteByte('\'') })
		return
	}
	styledElement(p, pack, style.ElementBrace, func() { p.WriteByte('[') })
	for i, e := range elems {
		if i > 0 {
			styledElement(p, pack, style.ElementComma, func() { p.WriteByte(',') })
		}
		f.formatFieldValue(p, pack, e, nil, Unspecified)
	}
	styledElement(p, pack, style.ElementBrace, func() { p.WriteByte(']') })
}

var hexDigit = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

func isNumberStart(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+' || b == '.'
}

// isByteString reports whether every element of a JSON array is a small
// integer literal in [0,255], the heuristic that switches rendering from a
// bracketed list to a b'...' byte string.
func isByteString(elems [][]byte) bool {
	for _, e := range elems {
		if _, ok := parseByteElement(e); !ok {
			return false
		}
	}
	return true
}

func parseByteElement(raw []byte) (byte, bool) {
	if len(raw) == 0 || len(raw) > 3 {
		return 0, false
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n > 255 {
		return 0, false
	}
	return byte(n), true
}

func isEmptyValue(raw []byte) bool {
	switch string(raw) {
	case `""`, "null", "{}", "[]":
		return true
	default:
		return false
	}
}

func writeUnescaped(p *style.Processor, pack *style.StylePack, e style.Element, raw []byte) {
	styledElement(p, pack, e, func() {
		s, err := rawjson.UnescapeString(raw)
		if err != nil {
			p.Write(raw)
			return
		}
		p.Write([]byte(s))
	})
}

func styledElement(p *style.Processor, pack *style.StylePack, e style.Element, fn func()) {
	if pack == nil {
		fn()
		return
	}
	s, ok := pack.Lookup(e)
	if !ok {
		fn()
		return
	}
	pf, pb, pl := p.PushStyle(s)
	fn()
	p.PopStyle(pf, pb, pl)
}
