package input

import (
	"bytes"
	"compress/flate"
	"io"
	"sync"
)

// ReplayOptions sizes a ReplayBuf.
type ReplayOptions struct {
	// SegmentSize is the uncompressed capture granularity in bytes.
	SegmentSize int
	// CacheEntries bounds how many decompressed segments are kept hot.
	CacheEntries int
}

// DefaultReplayOptions returns the 256 KiB / 8-entry sizing used unless a
// caller overrides it.
func DefaultReplayOptions() ReplayOptions {
	return ReplayOptions{SegmentSize: 256 << 10, CacheEntries: 8}
}

func (o ReplayOptions) withDefaults() ReplayOptions {
	if o.SegmentSize <= 0 {
		o.SegmentSize = 256 << 10
	}
	if o.CacheEntries <= 0 {
		o.CacheEntries = 8
	}
	return o
}

// ReplayBuf makes a non-seekable stream readable at arbitrary offsets by
// capturing it into fixed-size segments, deflating each as it arrives and
// keeping only the compressed form in memory. ReadAt inflates the segments
// it touches through a small LRU of decompressed entries.
//
// ReadAt and Size are safe for concurrent use; sort workers read blocks of
// the same source in parallel.
type ReplayBuf struct {
	mu   sync.Mutex
	src  io.Reader
	opts ReplayOptions

	segments [][]byte // deflate-compressed captures, each SegmentSize long except the last
	total    int64    // uncompressed bytes captured so far
	eof      bool
	readErr  error

	cache    map[int][]byte
	cacheLRU []int // segment indices, least recently used first
}

// NewReplayBuf wraps src. Nothing is read until the first ReadAt or Size
// call. If src is an io.Closer it is closed by Close.
func NewReplayBuf(src io.Reader, opts ReplayOptions) *ReplayBuf {
	return &ReplayBuf{
		src:   src,
		opts:  opts.withDefaults(),
		cache: make(map[int][]byte),
	}
}

// Size captures the remaining stream and returns the total uncompressed
// length.
func (rb *ReplayBuf) Size() (int64, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err := rb.captureTo(-1); err != nil {
		return 0, err
	}
	return rb.total, nil
}

// ReadAt reads len(p) bytes at offset off, capturing more of the source if
// the requested range has not been seen yet.
func (rb *ReplayBuf) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err := rb.captureTo(off + int64(len(p))); err != nil {
		return 0, err
	}
	n := 0
	segSize := int64(rb.opts.SegmentSize)
	for n < len(p) {
		pos := off + int64(n)
		if pos >= rb.total {
			return n, io.EOF
		}
		idx := int(pos / segSize)
		seg, err := rb.segment(idx)
		if err != nil {
			return n, err
		}
		within := int(pos - int64(idx)*segSize)
		n += copy(p[n:], seg[within:])
	}
	return n, nil
}

// Close closes the wrapped source if it is closeable and drops all captured
// state.
func (rb *ReplayBuf) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.segments = nil
	rb.cache = nil
	rb.cacheLRU = nil
	if c, ok := rb.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// captureTo reads from the source until at least limit uncompressed bytes
// have been captured (limit < 0 means everything).
func (rb *ReplayBuf) captureTo(limit int64) error {
	if rb.readErr != nil {
		return rb.readErr
	}
	raw := make([]byte, rb.opts.SegmentSize)
	for !rb.eof && (limit < 0 || rb.total < limit) {
		n, err := io.ReadFull(rb.src, raw)
		if n > 0 {
			var comp bytes.Buffer
			fw, ferr := flate.NewWriter(&comp, flate.BestSpeed)
			if ferr != nil {
				rb.readErr = ferr
				return ferr
			}
			if _, werr := fw.Write(raw[:n]); werr != nil {
				rb.readErr = werr
				return werr
			}
			if cerr := fw.Close(); cerr != nil {
				rb.readErr = cerr
				return cerr
			}
			rb.segments = append(rb.segments, append([]byte(nil), comp.Bytes()...))
			rb.total += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			rb.eof = true
			break
		}
		if err != nil {
			rb.readErr = err
			return err
		}
	}
	return nil
}

// segment returns the decompressed bytes of segment idx, serving from the
// LRU when possible.
func (rb *ReplayBuf) segment(idx int) ([]byte, error) {
	if seg, ok := rb.cache[idx]; ok {
		rb.touch(idx)
		return seg, nil
	}
	fr := flate.NewReader(bytes.NewReader(rb.segments[idx]))
	seg, err := io.ReadAll(fr)
	fr.Close()
	if err != nil {
		return nil, err
	}
	if len(rb.cache) >= rb.opts.CacheEntries && len(rb.cacheLRU) > 0 {
		evict := rb.cacheLRU[0]
		rb.cacheLRU = rb.cacheLRU[1:]
		delete(rb.cache, evict)
	}
	rb.cache[idx] = seg
	rb.cacheLRU = append(rb.cacheLRU, idx)
	return seg, nil
}

func (rb *ReplayBuf) touch(idx int) {
	for i, v := range rb.cacheLRU {
		if v == idx {
			rb.cacheLRU = append(rb.cacheLRU[:i], rb.cacheLRU[i+1:]...)
			rb.cacheLRU = append(rb.cacheLRU, idx)
			return
		}
	}
}
