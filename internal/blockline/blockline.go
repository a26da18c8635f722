// Package blockline streams the decoded lines of one indexed block in
// chronological order. Blocks whose lines were already in timestamp order
// are scanned forward; blocks with a chronology follow its bitmap and jump
// table instead, so lines come out sorted without re-parsing a single
// timestamp.
package blockline

import (
	"bytes"

	"github.com/standardbeagle/hl/internal/blockidx"
)

// Iterator yields a block's lines one at a time. Yielded slices are views
// into the block buffer handed to New; they stay valid after the iterator
// is exhausted for as long as the caller retains them.
type Iterator struct {
	data  []byte
	chron *blockidx.Chronology

	cursor     int // byte offset of the next line to yield
	jumpCursor int
	line       int // chronological index of the next line
	total      int
}

// New returns an Iterator over the raw bytes of one block. chron may be
// nil, meaning physical order is chronological order.
func New(data []byte, chron *blockidx.Chronology) *Iterator {
	it := &Iterator{data: data, chron: chron, total: countLines(data)}
	if chron != nil && len(chron.Offsets) > 0 {
		it.cursor = int(chron.Offsets[0].ByteOffset)
		it.jumpCursor = int(chron.Offsets[0].JumpIndex)
	}
	return it
}

func countLines(data []byte) int {
	n := 0
	for len(data) > 0 {
		n++
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		data = data[nl+1:]
	}
	return n
}

// Next returns the next line in chronological order, without its trailing
// newline (or carriage return), and reports whether one was available.
func (it *Iterator) Next() ([]byte, bool) {
	if it.line >= it.total {
		return nil, false
	}
	if it.chron != nil {
		it.position()
	}
	line, next := lineAt(it.data, it.cursor)
	it.cursor = next
	it.line++
	return line, true
}

// position moves the byte cursor according to the chronology for the line
// about to be yielded. A chunk boundary resets both cursors from the chunk
// offset entry; a set bitmap bit takes the next jump target; otherwise the
// cursor is already at the right place because the previous line was
// physically adjacent.
func (it *Iterator) position() {
	chunk := it.line / 64
	bit := uint(it.line % 64)
	switch {
	case bit == 0:
		it.cursor = int(it.chron.Offsets[chunk].ByteOffset)
		it.jumpCursor = int(it.chron.Offsets[chunk].JumpIndex)
	case it.chron.Bitmap[chunk]&(1<<bit) != 0:
		it.cursor = int(it.chron.Jumps[it.jumpCursor])
		it.jumpCursor++
	}
}

// lineAt extracts the line starting at offset, returning it without the
// line terminator plus the offset of the next physical line.
func lineAt(data []byte, offset int) (line []byte, next int) {
	rest := data[offset:]
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		line = rest[:nl]
		next = offset + nl + 1
	} else {
		line = rest
		next = len(data)
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, next
}
