// Package sortmerge implements the timestamp-ordered merge across indexed
// inputs: a pusher that pre-orders blocks by their timestamp extremes, N
// workers that decode, filter and format each block's lines in
// chronological order, and a single-threaded merger that interleaves the
// worker outputs through a k-way heap. Output records are non-decreasing in
// timestamp; ties break on (file, block ordinal, byte offset) so the result
// is deterministic.
package sortmerge

import (
	"bufio"
	"container/heap"
	"context"
	"errors"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/hl/internal/blockidx"
	"github.com/standardbeagle/hl/internal/blockline"
	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/diag"
	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/format"
	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/record"
	"github.com/standardbeagle/hl/internal/types"
)

// Input is one indexed source ready for merging.
type Input struct {
	Name   string
	Reader io.ReaderAt
	Index  *blockidx.Index
}

// Options configures a sort run.
type Options struct {
	Concurrency int
	Parser      config.ParserSettings
	MinLevel    types.Level
	// TimeRange drops records outside it; whole blocks whose timestamp
	// extremes miss the range are skipped without being read.
	TimeRange types.TimeRange
	Formatter *format.Formatter
}

// task is one block of work, pushed to a worker stripe.
type task struct {
	blk     blockidx.Block
	fileID  int
	ordinal int
}

// lineRef is one formatted record within an outputBlock's buffer.
type lineRef struct {
	ts         types.Timestamp
	start, end uint32
}

// outputBlock is one fully formatted block: a shared byte buffer plus the
// (timestamp, byte range) of every surviving line, already in chronological
// order because the worker walked the block's chronology.
type outputBlock struct {
	buf     []byte
	lines   []lineRef
	fileID  int
	ordinal int
	tsMin   types.Timestamp
}

var errStopped = errors.New("sortmerge: output closed")

// Sort merges all inputs into w in timestamp order. All goroutines are
// joined before Sort returns; a broken pipe on the output is success.
func Sort(w io.Writer, inputs []*Input, opts Options) error {
	n := opts.Concurrency
	if n < 1 {
		n = 1
	}
	ps := opts.Parser
	ps.NeedUnixTimestamp = true

	tasks := gatherTasks(inputs, opts.MinLevel, opts.TimeRange)

	push := make([]chan task, n)
	out := make([]chan *outputBlock, n)
	for i := 0; i < n; i++ {
		push[i] = make(chan task, 1)
		out[i] = make(chan *outputBlock, 1)
	}

	g, ctx := errgroup.WithContext(context.Background())
	done := ctx.Done()

	g.Go(func() error {
		defer func() {
			for i := 0; i < n; i++ {
				close(push[i])
			}
		}()
		for _, t := range tasks {
			select {
			case push[t.ordinal%n] <- t:
			case <-done:
				return nil
			}
		}
		return nil
	})

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			defer close(out[i])
			for t := range push[i] {
				ob, err := processBlock(t, inputs[t.fileID], ps, opts)
				if err != nil {
					return err
				}
				select {
				case out[i] <- ob:
				case <-done:
					return nil
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		return merge(w, out, done)
	})

	err := g.Wait()
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

// gatherTasks flattens every input's blocks, drops the ones that cannot
// contribute output (no valid lines, no timestamps, no line at or above
// the minimum level, or timestamp extremes entirely outside the requested
// range), and orders the rest by (ts_min, ts_max, file, offset) so the
// merger receives blocks in ascending lower-bound order.
func gatherTasks(inputs []*Input, minLevel types.Level, timeRange types.TimeRange) []task {
	var tasks []task
	for fileID, in := range inputs {
		for _, blk := range in.Index.Source.Blocks {
			if blk.Stat.LinesValid == 0 || !blk.Stat.HasTSMinMax {
				continue
			}
			if minLevel != types.LevelUnset && blk.Stat.Flags&types.MinLevelMask(minLevel) == 0 {
				continue
			}
			if !timeRange.Overlaps(blk.Stat.TSMin, blk.Stat.TSMax) {
				continue
			}
			tasks = append(tasks, task{blk: blk, fileID: fileID})
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]
		if c := a.blk.Stat.TSMin.Compare(b.blk.Stat.TSMin); c != 0 {
			return c < 0
		}
		if c := a.blk.Stat.TSMax.Compare(b.blk.Stat.TSMax); c != 0 {
			return c < 0
		}
		if a.fileID != b.fileID {
			return a.fileID < b.fileID
		}
		return a.blk.Offset < b.blk.Offset
	})
	for j := range tasks {
		tasks[j].ordinal = j
	}
	return tasks
}

// processBlock loads one block's bytes, walks its lines chronologically,
// and formats the records that survive the level filter. Lines without a
// parseable timestamp inherit the previous line's so they keep their place.
func processBlock(t task, in *Input, ps config.ParserSettings, opts Options) (*outputBlock, error) {
	data := make([]byte, t.blk.Size)
	if _, err := in.Reader.ReadAt(data, int64(t.blk.Offset)); err != nil && err != io.EOF {
		return nil, errz.NewIOError("read", in.Name, err)
	}

	ob := &outputBlock{
		fileID:  t.fileID,
		ordinal: t.ordinal,
		tsMin:   t.blk.Stat.TSMin,
	}
	prev := t.blk.Stat.TSMin
	invalid := 0
	it := blockline.New(data, t.blk.Chronology)
	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		if len(line) == 0 {
			continue
		}
		raw, err := rawjson.Parse(line)
		if err != nil {
			if invalid == 0 && diag.Enabled() {
				diag.Printf("%v", errz.NewParseError(in.Name, int64(t.blk.Offset), err))
			}
			invalid++
			continue
		}
		rec := record.Parse(raw, ps)
		ts := prev
		if rec.TimestampResolved {
			ts = rec.Timestamp
		}
		prev = ts
		if opts.MinLevel != types.LevelUnset && rec.Level < opts.MinLevel {
			continue
		}
		if !opts.TimeRange.Contains(ts) {
			continue
		}
		start := uint32(len(ob.buf))
		ob.buf = opts.Formatter.FormatRecord(ob.buf, rec)
		ob.lines = append(ob.lines, lineRef{ts: ts, start: start, end: uint32(len(ob.buf))})
	}
	return ob, nil
}

// mergeHeap orders block heads by (timestamp, file, ordinal, byte offset).
type mergeHead struct {
	ob  *outputBlock
	pos int
}

func (h mergeHead) key() (types.Timestamp, int, int, uint32) {
	l := h.ob.lines[h.pos]
	return l.ts, h.ob.fileID, h.ob.ordinal, l.start
}

type mergeHeap []mergeHead

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	ti, fi, oi, si := h[i].key()
	tj, fj, oj, sj := h[j].key()
	if c := ti.Compare(tj); c != 0 {
		return c < 0
	}
	if fi != fj {
		return fi < fj
	}
	if oi != oj {
		return oi < oj
	}
	return si < sj
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(mergeHead)) }

func (h *mergeHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// merge interleaves worker outputs into w. It pulls blocks from the
// stripes in ordinal order, which the pusher arranged to be ascending in
// ts_min; a head line may be emitted once its timestamp is strictly below
// the most recently fetched block's ts_min, because nothing still in
// flight can precede it. Equal timestamps keep fetching until the bound
// moves past them, so ties always resolve against a complete workspace.
func merge(w io.Writer, out []chan *outputBlock, done <-chan struct{}) error {
	n := len(out)
	bw := bufio.NewWriter(w)
	var h mergeHeap
	var bound types.Timestamp
	fetchedAll := false
	k := 0

	for {
		for !fetchedAll && (h.Len() == 0 || !h[0].key0().Less(bound)) {
			var ob *outputBlock
			var ok bool
			select {
			case ob, ok = <-out[k%n]:
			case <-done:
				return nil
			}
			if !ok {
				fetchedAll = true
				break
			}
			k++
			bound = ob.tsMin
			if len(ob.lines) > 0 {
				heap.Push(&h, mergeHead{ob: ob})
			}
		}
		if h.Len() == 0 {
			break
		}
		hd := heap.Pop(&h).(mergeHead)
		l := hd.ob.lines[hd.pos]
		if _, err := bw.Write(hd.ob.buf[l.start:l.end]); err != nil {
			if errz.IsBrokenPipe(err) {
				return errStopped
			}
			return errz.NewIOError("write", "output", err)
		}
		if hd.pos++; hd.pos < len(hd.ob.lines) {
			heap.Push(&h, hd)
		}
	}
	if err := bw.Flush(); err != nil {
		if errz.IsBrokenPipe(err) {
			return errStopped
		}
		return errz.NewIOError("write", "output", err)
	}
	return nil
}

// key0 returns the head's current line timestamp.
func (h mergeHead) key0() types.Timestamp { return h.ob.lines[h.pos].ts }
