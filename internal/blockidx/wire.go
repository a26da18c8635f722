package blockidx

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/types"
)

// On-disk layout: a fixed 32-byte header (magic, version, two reserved
// words) followed by one length-framed message holding the Source tree.
// Everything is little-endian.
const (
	indexMagic   uint64 = 0x5845444e492d4c48 // "HL-INDEX"
	indexVersion uint64 = 1
)

// Write serializes idx to w.
func Write(w io.Writer, idx *Index) error {
	var hdr [32]byte
	binary.LittleEndian.PutUint64(hdr[0:], indexMagic)
	binary.LittleEndian.PutUint64(hdr[8:], indexVersion)
	// bytes 16..32 are the reserved size/checksum words, written as zero
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	body := appendSource(nil, &idx.Source)
	var frame [8]byte
	binary.LittleEndian.PutUint64(frame[:], uint64(len(body)))
	if _, err := w.Write(frame[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func appendSource(b []byte, s *Source) []byte {
	b = binary.LittleEndian.AppendUint64(b, s.Size)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Path)))
	b = append(b, s.Path...)
	b = binary.LittleEndian.AppendUint64(b, uint64(s.ModifiedSec))
	b = binary.LittleEndian.AppendUint32(b, s.ModifiedNsec)
	b = appendStat(b, &s.Stat)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Blocks)))
	for i := range s.Blocks {
		b = appendBlock(b, &s.Blocks[i])
	}
	return b
}

func appendStat(b []byte, s *Stat) []byte {
	b = binary.LittleEndian.AppendUint64(b, uint64(s.Flags))
	b = binary.LittleEndian.AppendUint64(b, s.LinesValid)
	b = binary.LittleEndian.AppendUint64(b, s.LinesInvalid)
	if !s.HasTSMinMax {
		return append(b, 0)
	}
	b = append(b, 1)
	b = binary.LittleEndian.AppendUint64(b, uint64(s.TSMin.Sec))
	b = binary.LittleEndian.AppendUint32(b, s.TSMin.Nsec)
	b = binary.LittleEndian.AppendUint64(b, uint64(s.TSMax.Sec))
	b = binary.LittleEndian.AppendUint32(b, s.TSMax.Nsec)
	return b
}

func appendBlock(b []byte, blk *Block) []byte {
	b = binary.LittleEndian.AppendUint64(b, blk.Offset)
	b = binary.LittleEndian.AppendUint32(b, blk.Size)
	b = appendStat(b, &blk.Stat)
	b = binary.LittleEndian.AppendUint64(b, blk.Checksum)
	if blk.Chronology == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	c := blk.Chronology
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Bitmap)))
	for _, w := range c.Bitmap {
		b = binary.LittleEndian.AppendUint64(b, w)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Offsets)))
	for _, o := range c.Offsets {
		b = binary.LittleEndian.AppendUint32(b, o.ByteOffset)
		b = binary.LittleEndian.AppendUint32(b, o.JumpIndex)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Jumps)))
	for _, j := range c.Jumps {
		b = binary.LittleEndian.AppendUint32(b, j)
	}
	return b
}

// Read deserializes an Index from r, rejecting anything whose magic or
// version differ or whose framing is short. path names the index file for
// error messages only.
func Read(r io.Reader, path string) (*Index, error) {
	var hdr [32]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errz.NewIndexCorruptionError(path, "short header", err)
	}
	if got := binary.LittleEndian.Uint64(hdr[0:]); got != indexMagic {
		return nil, errz.NewIndexCorruptionError(path, fmt.Sprintf("bad magic %#x", got), nil)
	}
	if got := binary.LittleEndian.Uint64(hdr[8:]); got != indexVersion {
		return nil, errz.NewIndexCorruptionError(path, fmt.Sprintf("unsupported version %d", got), nil)
	}

	var frame [8]byte
	if _, err := io.ReadFull(r, frame[:]); err != nil {
		return nil, errz.NewIndexCorruptionError(path, "short frame", err)
	}
	bodyLen := binary.LittleEndian.Uint64(frame[:])
	const maxBody = 1 << 32
	if bodyLen > maxBody {
		return nil, errz.NewIndexCorruptionError(path, "frame length out of range", nil)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errz.NewIndexCorruptionError(path, "short body", err)
	}

	d := &decoder{buf: body, path: path}
	idx := &Index{}
	d.readSource(&idx.Source)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.buf) != 0 {
		return nil, errz.NewIndexCorruptionError(path, "trailing bytes", nil)
	}
	return idx, nil
}

type decoder struct {
	buf  []byte
	path string
	err  error
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = errz.NewIndexCorruptionError(d.path, "truncated "+what, nil)
	}
}

func (d *decoder) take(n int, what string) []byte {
	if d.err != nil || len(d.buf) < n {
		d.fail(what)
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u64(what string) uint64 {
	b := d.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) u32(what string) uint32 {
	b := d.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u8(what string) uint8 {
	b := d.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) readSource(s *Source) {
	s.Size = d.u64("source size")
	pathLen := d.u32("path length")
	pathBytes := d.take(int(pathLen), "path")
	s.Path = string(pathBytes)
	s.ModifiedSec = int64(d.u64("modified sec"))
	s.ModifiedNsec = d.u32("modified nsec")
	d.readStat(&s.Stat)
	n := d.u32("block count")
	if d.err != nil || n == 0 {
		return
	}
	// Each block costs well over a byte on the wire, so a count exceeding
	// the remaining payload can only be corruption; checking here keeps a
	// bad count from sizing a huge allocation.
	if int64(n) > int64(len(d.buf)) {
		d.fail("block count")
		return
	}
	s.Blocks = make([]Block, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		var blk Block
		d.readBlock(&blk)
		s.Blocks = append(s.Blocks, blk)
	}
}

func (d *decoder) readStat(s *Stat) {
	s.Flags = types.Flags(d.u64("flags"))
	s.LinesValid = d.u64("valid lines")
	s.LinesInvalid = d.u64("invalid lines")
	if d.u8("timestamp presence") == 0 {
		return
	}
	s.HasTSMinMax = true
	s.TSMin.Sec = int64(d.u64("min sec"))
	s.TSMin.Nsec = d.u32("min nsec")
	s.TSMax.Sec = int64(d.u64("max sec"))
	s.TSMax.Nsec = d.u32("max nsec")
}

func (d *decoder) readBlock(blk *Block) {
	blk.Offset = d.u64("block offset")
	blk.Size = d.u32("block size")
	d.readStat(&blk.Stat)
	blk.Checksum = d.u64("block checksum")
	if d.u8("chronology presence") == 0 {
		return
	}
	c := &Chronology{}
	nb := d.u32("bitmap length")
	if d.err != nil {
		return
	}
	if int64(nb) > int64(len(d.buf)) {
		d.fail("bitmap length")
		return
	}
	if nb > 0 {
		c.Bitmap = make([]uint64, 0, nb)
	}
	for i := uint32(0); i < nb && d.err == nil; i++ {
		c.Bitmap = append(c.Bitmap, d.u64("bitmap word"))
	}
	no := d.u32("offsets length")
	if d.err != nil {
		return
	}
	if int64(no) > int64(len(d.buf)) {
		d.fail("offsets length")
		return
	}
	if no > 0 {
		c.Offsets = make([]ChronologyOffset, 0, no)
	}
	for i := uint32(0); i < no && d.err == nil; i++ {
		var o ChronologyOffset
		o.ByteOffset = d.u32("offset bytes")
		o.JumpIndex = d.u32("offset jumps")
		c.Offsets = append(c.Offsets, o)
	}
	nj := d.u32("jumps length")
	if d.err != nil {
		return
	}
	if int64(nj) > int64(len(d.buf)) {
		d.fail("jumps length")
		return
	}
	if nj > 0 {
		c.Jumps = make([]uint32, 0, nj)
	}
	for i := uint32(0); i < nj && d.err == nil; i++ {
		c.Jumps = append(c.Jumps, d.u32("jump offset"))
	}
	blk.Chronology = c
}
