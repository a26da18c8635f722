package blockidx

import (
	"bytes"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/record"
	"github.com/standardbeagle/hl/internal/segment"
	"github.com/standardbeagle/hl/internal/types"
)

// Indexer builds an Index for one source by scanning it into segments and
// fanning the per-segment analysis out over N workers, mirroring the cat
// pipeline's striped channel scheme so block order matches file order
// without any sorting.
type Indexer struct {
	pool        *segment.Pool
	maxSize     int
	concurrency int
	ps          config.ParserSettings
}

// NewIndexer sizes an Indexer. The parser settings' field recognition lists
// decide which lines count as valid and where timestamps come from; the
// indexer always resolves timestamps eagerly regardless of the settings'
// NeedUnixTimestamp.
func NewIndexer(pool *segment.Pool, maxSize, concurrency int, ps config.ParserSettings) *Indexer {
	if concurrency < 1 {
		concurrency = 1
	}
	ps.NeedUnixTimestamp = true
	return &Indexer{pool: pool, maxSize: maxSize, concurrency: concurrency, ps: ps}
}

// segResult is one analyzed segment, sent from a worker to the aggregator.
type segResult struct {
	size     uint32
	stat     Stat
	chron    *Chronology
	checksum uint64
}

// Build scans r and produces the Index for a source identified by path,
// size and modification time. The source identity is embedded verbatim; the
// cache layer uses it to decide whether the index is still current.
func (ix *Indexer) Build(r io.Reader, path string, size uint64, modSec int64, modNsec uint32) (*Index, error) {
	n := ix.concurrency
	scanner := segment.NewScanner(ix.pool, ix.maxSize)

	in := make([]chan segment.Segment, n)
	out := make([]chan segResult, n)
	for i := 0; i < n; i++ {
		in[i] = make(chan segment.Segment, 1)
		out[i] = make(chan segResult, 1)
	}
	done := make(chan struct{})

	var g errgroup.Group
	var readErr error

	g.Go(func() error {
		defer func() {
			for i := 0; i < n; i++ {
				close(in[i])
			}
		}()
		segs := make(chan segment.Segment, 1)
		go scanner.Scan(r, segs, done)
		k := 0
		for seg := range segs {
			if seg.Kind == segment.Incomplete && len(seg.Data) == 0 && seg.Reason != nil {
				readErr = errz.NewIOError("read", path, seg.Reason)
				seg.Release()
				break
			}
			select {
			case in[k%n] <- seg:
				k++
				continue
			case <-done:
				seg.Release()
			}
			break
		}
		for s := range segs {
			s.Release()
		}
		return readErr
	})

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			defer close(out[i])
			for seg := range in[i] {
				res := ix.analyzeSegment(seg)
				seg.Release()
				select {
				case out[i] <- res:
				case <-done:
					return nil
				}
			}
			return nil
		})
	}

	idx := &Index{Source: Source{
		Size:         size,
		Path:         path,
		ModifiedSec:  modSec,
		ModifiedNsec: modNsec,
	}}

	g.Go(func() error {
		defer close(done)
		var offset uint64
		for k := 0; ; k++ {
			res, ok := <-out[k%n]
			if !ok {
				return nil
			}
			blk := Block{
				Offset:     offset,
				Size:       res.size,
				Stat:       res.stat,
				Chronology: res.chron,
				Checksum:   res.checksum,
			}
			offset += uint64(res.size)
			idx.Source.Stat.Merge(res.stat)
			idx.Source.Blocks = append(idx.Source.Blocks, blk)
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return idx, nil
}

// lineEntry is the per-line bookkeeping analyzeSegment records while
// deciding whether a segment is internally sorted.
type lineEntry struct {
	ts     types.Timestamp
	orig   uint32
	offset uint32
}

// analyzeSegment computes a segment's Stat and, when its lines are not in
// non-decreasing timestamp order, its Chronology. Lines without a parseable
// timestamp inherit the previous line's, keeping them adjacent to their
// predecessor in the chronological order.
func (ix *Indexer) analyzeSegment(seg segment.Segment) segResult {
	res := segResult{
		size:     uint32(len(seg.Data)),
		checksum: xxhash.Sum64(seg.Data),
	}

	var lines []lineEntry
	var prev types.Timestamp
	unsorted := false

	data := seg.Data
	offset := uint32(0)
	for len(data) > 0 {
		var line []byte
		if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
			line = data[:nl]
			data = data[nl+1:]
		} else {
			line = data
			data = nil
		}
		lineLen := uint32(len(line)) + 1
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		ts := prev
		if len(line) == 0 {
			res.stat.LinesInvalid++
		} else if raw, err := rawjson.Parse(line); err != nil {
			res.stat.LinesInvalid++
		} else {
			res.stat.LinesValid++
			rec := record.Parse(raw, ix.ps)
			res.stat.Flags |= types.LevelFlag(rec.Level)
			if rec.TimestampResolved {
				ts = rec.Timestamp
				res.stat.Flags |= types.FlagHasTimestamps
				if !res.stat.HasTSMinMax {
					res.stat.HasTSMinMax = true
					res.stat.TSMin, res.stat.TSMax = ts, ts
				} else {
					if ts.Less(res.stat.TSMin) {
						res.stat.TSMin = ts
					}
					if res.stat.TSMax.Less(ts) {
						res.stat.TSMax = ts
					}
				}
				if ts.Less(prev) {
					unsorted = true
				}
			}
		}
		lines = append(lines, lineEntry{ts: ts, orig: uint32(len(lines)), offset: offset})
		prev = ts
		offset += lineLen
	}

	if unsorted {
		res.stat.Flags |= types.FlagUnsorted
		res.chron = buildChronology(lines)
	}
	return res
}

// buildChronology sorts the segment's lines stably by (timestamp, original
// index) and encodes the result as the bitmap/offsets/jumps triple: one
// ChronologyOffset per 64-line chunk, one bitmap bit per chronological line
// position, and a jump target for every line that is not physically
// adjacent to its chronological predecessor.
func buildChronology(lines []lineEntry) *Chronology {
	sorted := make([]lineEntry, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].ts.Compare(sorted[j].ts); c != 0 {
			return c < 0
		}
		return sorted[i].orig < sorted[j].orig
	})

	c := &Chronology{
		Bitmap: make([]uint64, (len(sorted)+63)/64),
	}
	for k, e := range sorted {
		if k%64 == 0 {
			c.Offsets = append(c.Offsets, ChronologyOffset{
				ByteOffset: e.offset,
				JumpIndex:  uint32(len(c.Jumps)),
			})
			continue
		}
		if e.orig != sorted[k-1].orig+1 {
			c.Bitmap[k/64] |= 1 << uint(k%64)
			c.Jumps = append(c.Jumps, e.offset)
		}
	}
	return c
}
