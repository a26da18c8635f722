// Package pipeline implements the streaming cat mode: one reader scanning
// inputs into segments, N workers parsing and formatting them, and one
// writer re-serializing the results, all coordinated through capacity-1
// channel stripes indexed k mod N. The striping alone preserves input
// order; no per-item sorting happens anywhere.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/format"
	"github.com/standardbeagle/hl/internal/input"
	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/record"
	"github.com/standardbeagle/hl/internal/segment"
	"github.com/standardbeagle/hl/internal/types"
)

// Options configures a cat run.
type Options struct {
	Concurrency int
	BufferSize  int
	Parser      config.ParserSettings
	// MinLevel drops records below the given level. LevelUnset means no
	// filtering, which also switches unparsable lines to raw passthrough
	// (as does an open TimeRange).
	MinLevel types.Level
	// TimeRange drops records whose timestamp falls outside it; records
	// with no parseable timestamp are dropped too when a bound is set.
	TimeRange types.TimeRange
	Formatter *format.Formatter
}

// errStopped aborts the scope when the writer hits a broken pipe; Cat maps
// it back to success so piping into head exits cleanly.
var errStopped = errors.New("pipeline: output closed")

// Cat streams all inputs through the parse/format pipeline into w,
// preserving input order. All goroutines are joined before Cat returns.
func Cat(w io.Writer, inputs []*input.Input, opts Options) error {
	n := opts.Concurrency
	if n < 1 {
		n = 1
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = config.DefaultBufferSize
	}

	segPool := segment.NewPool(bufSize, n*2+2)
	outPool := segment.NewPool(bufSize, n*2+2)
	scanner := segment.NewScanner(segPool, bufSize)

	in := make([]chan segment.Segment, n)
	out := make([]chan []byte, n)
	for i := 0; i < n; i++ {
		in[i] = make(chan segment.Segment, 1)
		out[i] = make(chan []byte, 1)
	}

	g, ctx := errgroup.WithContext(context.Background())
	done := ctx.Done()

	g.Go(func() error {
		defer func() {
			for i := 0; i < n; i++ {
				close(in[i])
			}
		}()
		k := 0
		for _, src := range inputs {
			segs := make(chan segment.Segment, 1)
			go scanner.Scan(src.Reader, segs, done)
			name := src.Name
			var err error
			for seg := range segs {
				if seg.Kind == segment.Incomplete && len(seg.Data) == 0 && seg.Reason != nil {
					err = errz.NewIOError("read", name, seg.Reason)
					seg.Release()
					break
				}
				sent := false
				select {
				case in[k%n] <- seg:
					sent = true
					k++
				case <-done:
					seg.Release()
				}
				if !sent {
					break
				}
			}
			for s := range segs {
				s.Release()
			}
			if err != nil {
				return err
			}
			select {
			case <-done:
				return nil
			default:
			}
		}
		return nil
	})

	worker := newWorker(opts)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			defer close(out[i])
			for seg := range in[i] {
				buf := worker.processSegment(outPool.Get(), seg)
				seg.Release()
				select {
				case out[i] <- buf:
				case <-done:
					outPool.Put(buf)
					return nil
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		bw := bufio.NewWriter(w)
		for k := 0; ; k++ {
			var buf []byte
			var ok bool
			select {
			case buf, ok = <-out[k%n]:
			case <-done:
				return nil
			}
			if !ok {
				break
			}
			_, err := bw.Write(buf)
			outPool.Put(buf)
			if err != nil {
				if errz.IsBrokenPipe(err) {
					return errStopped
				}
				return errz.NewIOError("write", "output", err)
			}
		}
		if err := bw.Flush(); err != nil {
			if errz.IsBrokenPipe(err) {
				return errStopped
			}
			return errz.NewIOError("write", "output", err)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

// worker holds the per-run state shared read-only by all workers: parser
// settings, the level filter and the formatter. The formatter itself is
// stateless across records, so one instance serves every stripe.
type worker struct {
	ps          config.ParserSettings
	minLevel    types.Level
	timeRange   types.TimeRange
	passthrough bool
	formatter   *format.Formatter
}

func newWorker(opts Options) *worker {
	return &worker{
		ps:          opts.Parser,
		minLevel:    opts.MinLevel,
		timeRange:   opts.TimeRange,
		passthrough: opts.MinLevel == types.LevelUnset && opts.TimeRange.IsOpen(),
		formatter:   opts.Formatter,
	}
}

// processSegment renders one segment into buf. Complete segments are split
// into lines and formatted record by record; Incomplete segments (an
// over-long line, or a tail without a newline) are forwarded raw so
// unparsable content still reaches the output.
func (wk *worker) processSegment(buf []byte, seg segment.Segment) []byte {
	if seg.Kind == segment.Incomplete {
		return append(buf, seg.Data...)
	}
	data := seg.Data
	for len(data) > 0 {
		var line []byte
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			line = data
			data = nil
		} else {
			line = data[:nl]
			data = data[nl+1:]
		}
		buf = wk.processLine(buf, line)
	}
	return buf
}

func (wk *worker) processLine(buf, line []byte) []byte {
	trimmed := line
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\r' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if len(trimmed) == 0 {
		if wk.passthrough {
			buf = append(buf, line...)
			buf = append(buf, '\n')
		}
		return buf
	}
	raw, err := rawjson.Parse(trimmed)
	if err != nil {
		if wk.passthrough {
			buf = append(buf, line...)
			buf = append(buf, '\n')
		}
		return buf
	}
	rec := record.Parse(raw, wk.ps)
	if wk.minLevel != types.LevelUnset && rec.Level < wk.minLevel {
		return buf
	}
	if !wk.timeRange.IsOpen() {
		ts, ok := rec.ResolveTimestamp()
		if !ok || !wk.timeRange.Contains(ts) {
			return buf
		}
	}
	return wk.formatter.FormatRecord(buf, rec)
}
