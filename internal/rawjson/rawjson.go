// Package rawjson decodes a single JSON object per log line into an
// order-preserving sequence of (key, raw value) pairs, keeping the original
// byte form of each value instead of re-encoding it. Field values are only
// ever inspected, never re-serialized, so json-iterator's low-level
// Iterator is used directly rather than its encoding/json-compatible
// facade.
package rawjson

import (
	"bytes"
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// KV is one field of a RawRecord: Key is the decoded object key, Raw is the
// untouched JSON bytes of its value (quotes included for strings).
type KV struct {
	Key string
	Raw []byte
}

// RawRecord is the untyped result of parsing one JSON object line: an
// ordered collection of (key, raw-payload-slice) pairs.
type RawRecord struct {
	Fields []KV
}

// Get returns the raw value for the first occurrence of key, if any.
func (r RawRecord) Get(key string) ([]byte, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Raw, true
		}
	}
	return nil, false
}

// ErrNotObject is returned when the line's top-level JSON value is not an
// object.
var ErrNotObject = errors.New("rawjson: top-level value is not a JSON object")

var iterConfig = jsoniter.Config{
	UseNumber: true,
}.Froze()

// Parse decodes the single JSON object found at the start of line, ignoring
// any trailing bytes (a trailing "\r\n" or "\n" left over from segment
// splitting). Field order is preserved exactly as encountered.
func Parse(line []byte) (RawRecord, error) {
	iter := iterConfig.BorrowIterator(line)
	defer iterConfig.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return RawRecord{}, ErrNotObject
	}

	var rec RawRecord
	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		raw := bytes.TrimLeft(it.SkipAndReturnBytes(), " \t\r\n")
		rec.Fields = append(rec.Fields, KV{Key: key, Raw: append([]byte(nil), raw...)})
		return it.Error == nil
	})
	if iter.Error != nil {
		return RawRecord{}, iter.Error
	}
	return rec, nil
}

// ErrNotArray is returned by ParseArray when the top-level JSON value is
// not an array.
var ErrNotArray = errors.New("rawjson: top-level value is not a JSON array")

// ParseArray decodes a JSON array's elements into their raw byte forms,
// preserving order, for the record formatter's array rendering.
func ParseArray(raw []byte) ([][]byte, error) {
	iter := iterConfig.BorrowIterator(raw)
	defer iterConfig.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ArrayValue {
		return nil, ErrNotArray
	}

	var elems [][]byte
	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		v := bytes.TrimLeft(it.SkipAndReturnBytes(), " \t\r\n")
		elems = append(elems, append([]byte(nil), v...))
		return it.Error == nil
	})
	if iter.Error != nil {
		return nil, iter.Error
	}
	return elems, nil
}

// UnescapeString decodes a quoted JSON string literal (quotes included) into
// its unescaped text, used by the record formatter to emit string values
// without their surrounding quotes or backslash escapes.
func UnescapeString(raw []byte) (string, error) {
	iter := iterConfig.BorrowIterator(raw)
	defer iterConfig.ReturnIterator(iter)
	s := iter.ReadString()
	if iter.Error != nil && iter.Error != io.EOF {
		return "", iter.Error
	}
	return s, nil
}
