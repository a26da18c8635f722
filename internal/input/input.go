// Package input opens the byte sources hl reads from: plain files, stdin,
// and gzip-compressed files, plus a replay buffer that makes non-seekable
// sources (stdin, inflated gzip) usable by the sort path, which needs
// random access into already-indexed regions.
package input

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/standardbeagle/hl/internal/errz"
)

// StdinName is the pseudo-path accepted wherever a file path is expected.
const StdinName = "-"

// Input is one opened byte source. Reader streams the (already inflated)
// content; Close releases the underlying file handle, if any.
type Input struct {
	Name   string
	Reader io.Reader

	closers []io.Closer
}

// Close closes the underlying handles in reverse open order.
func (in *Input) Close() error {
	var first error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	in.closers = nil
	return first
}

// Open returns a streaming Input for path. "-" (or "") means stdin. Files
// ending in .gz are transparently inflated.
func Open(path string) (*Input, error) {
	if path == "" || path == StdinName {
		return &Input{Name: "<stdin>", Reader: os.Stdin}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errz.NewIOError("open", path, err)
	}
	in := &Input{Name: path, Reader: f, closers: []io.Closer{f}}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errz.NewIOError("open", path, err)
		}
		in.Reader = zr
		in.closers = append(in.closers, zr)
	}
	return in, nil
}

// Seekable is the random-access capability the sort path needs from its
// sources: ReadAt at any offset plus the total Size.
type Seekable interface {
	io.ReaderAt
	io.Closer
	// Size returns the total source length in bytes. For a replay-buffered
	// source this forces capture of the remaining stream first.
	Size() (int64, error)
}

// fileSeekable adapts an *os.File.
type fileSeekable struct{ f *os.File }

func (fs fileSeekable) ReadAt(p []byte, off int64) (int, error) { return fs.f.ReadAt(p, off) }
func (fs fileSeekable) Close() error                            { return fs.f.Close() }

func (fs fileSeekable) Size() (int64, error) {
	st, err := fs.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// SortSource is an opened input prepared for the sort path: a Seekable view
// of its bytes plus the identity used to validate a cached index. Replayed
// is true when the source went through a ReplayBuf, meaning its identity is
// not stable across runs and the index cache must be bypassed.
type SortSource struct {
	Name     string
	Seekable Seekable

	Size         uint64
	ModifiedSec  int64
	ModifiedNsec uint32
	Replayed     bool
}

// OpenSortSource opens path for the sort path. A plain file is used
// directly; stdin and .gz files are captured through a ReplayBuf so blocks
// can be re-read by offset after indexing.
func OpenSortSource(path string, replayOpts ReplayOptions) (*SortSource, error) {
	if path == "" || path == StdinName {
		rb := NewReplayBuf(os.Stdin, replayOpts)
		size, err := rb.Size()
		if err != nil {
			return nil, errz.NewIOError("read", "<stdin>", err)
		}
		return &SortSource{Name: "<stdin>", Seekable: rb, Size: uint64(size), Replayed: true}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errz.NewIOError("open", path, err)
	}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errz.NewIOError("open", path, err)
		}
		rb := NewReplayBuf(readCloserPair{zr, f}, replayOpts)
		size, err := rb.Size()
		if err != nil {
			rb.Close()
			return nil, errz.NewIOError("read", path, err)
		}
		return &SortSource{Name: path, Seekable: rb, Size: uint64(size), Replayed: true}, nil
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errz.NewIOError("stat", path, err)
	}
	mod := st.ModTime()
	return &SortSource{
		Name:         path,
		Seekable:     fileSeekable{f},
		Size:         uint64(st.Size()),
		ModifiedSec:  mod.Unix(),
		ModifiedNsec: uint32(mod.Nanosecond()),
	}, nil
}

// readCloserPair reads from R and closes both R and C.
type readCloserPair struct {
	R io.ReadCloser
	C io.Closer
}

func (p readCloserPair) Read(b []byte) (int, error) { return p.R.Read(b) }

func (p readCloserPair) Close() error {
	err := p.R.Close()
	if cerr := p.C.Close(); err == nil {
		err = cerr
	}
	return err
}
