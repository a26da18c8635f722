// Package blockidx implements the per-file persistent block index:
// per-segment statistics (line counts, level-flag union, timestamp
// extremes) and a chronology encoding that lets a block's lines be
// iterated in timestamp order without fully decoding them first. The
// on-disk layout is a fixed header plus one length-framed message,
// implemented in wire.go.
package blockidx

import "github.com/standardbeagle/hl/internal/types"

// Stat summarizes one block or an entire source file.
type Stat struct {
	Flags        types.Flags
	LinesValid   uint64
	LinesInvalid uint64
	HasTSMinMax  bool
	TSMin        types.Timestamp
	TSMax        types.Timestamp
}

// Merge folds o into s, widening flags and timestamp extremes and summing
// line counts — used by the indexing aggregator to roll per-segment Stats
// up into the file-level Stat.
func (s *Stat) Merge(o Stat) {
	s.Flags |= o.Flags
	s.LinesValid += o.LinesValid
	s.LinesInvalid += o.LinesInvalid
	if !o.HasTSMinMax {
		return
	}
	if !s.HasTSMinMax {
		s.HasTSMinMax = true
		s.TSMin, s.TSMax = o.TSMin, o.TSMax
		return
	}
	if o.TSMin.Less(s.TSMin) {
		s.TSMin = o.TSMin
	}
	if s.TSMax.Less(o.TSMax) {
		s.TSMax = o.TSMax
	}
}

// ChronologyOffset gives the byte offset (relative to the owning block's
// start) of a 64-line chunk's first line in chronological order, and the
// base index into the owning Chronology's Jumps slice for that chunk.
type ChronologyOffset struct {
	ByteOffset uint32
	JumpIndex  uint32
}

// Chronology is the per-line-offset encoding that lets an unsorted block
// be iterated in timestamp order: one bitmap bit per chronological line
// position (set when that line isn't physically adjacent to its
// chronological predecessor), one ChronologyOffset per 64-line chunk, and
// a flat list of jump target byte offsets appended in chronological order.
// In a mostly-sorted block only the few displaced lines cost anything; the
// adjacent common case is a single bit test.
type Chronology struct {
	Bitmap  []uint64
	Offsets []ChronologyOffset
	Jumps   []uint32
}

// Block is one index entry: a segment's file offset and size, its Stat,
// and, only when the segment is internally unsorted, its Chronology.
// Checksum is the xxhash of the segment bytes, kept so a cached block can
// be cross-checked against its source region without reparsing.
type Block struct {
	Offset     uint64
	Size       uint32
	Stat       Stat
	Chronology *Chronology
	Checksum   uint64
}

// Source is the per-file portion of an Index: file identity (size, path,
// modification time) used to validate a cached index, its rolled-up Stat,
// and its ordered Blocks.
type Source struct {
	Size         uint64
	Path         string
	ModifiedSec  int64
	ModifiedNsec uint32
	Stat         Stat
	Blocks       []Block
}

// Index is the top-level persisted structure.
type Index struct {
	Source Source
}

// Valid reports whether idx was built from a source with the given size and
// modification time, the test deciding whether a cached index may be
// reused.
func (idx Index) Valid(size uint64, modSec int64, modNsec uint32) bool {
	return idx.Source.Size == size && idx.Source.ModifiedSec == modSec && idx.Source.ModifiedNsec == modNsec
}
