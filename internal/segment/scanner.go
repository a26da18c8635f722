package segment

import (
	"bytes"
	"errors"
	"io"
)

// ErrMaxSizeExceeded is the reason carried by an Incomplete segment that hit
// the maximum size without finding a newline.
var ErrMaxSizeExceeded = errors.New("segment exceeded maximum size without a newline")

// Kind distinguishes a newline-terminated segment from a truncated one.
type Kind int

const (
	Complete Kind = iota
	Incomplete
)

// Segment is a contiguous slice of input bytes, owned by a pooled buffer
// until Release is called.
type Segment struct {
	Kind   Kind
	Data   []byte
	Reason error // set only when Kind == Incomplete

	pool *Pool
	buf  []byte // the full pooled backing buffer; Data is a view into it
}

// Release returns the segment's backing buffer to its pool. Safe to call
// more than once.
func (s *Segment) Release() {
	if s.pool == nil {
		return
	}
	s.pool.Put(s.buf)
	s.pool = nil
	s.Data = nil
	s.buf = nil
}

// Scanner splits a byte stream into Segments of at most maxSize bytes,
// breaking on the last newline before the limit. Leftover bytes after that
// newline are carried into the next segment.
type Scanner struct {
	pool    *Pool
	maxSize int
}

// NewScanner creates a Scanner that pulls buffers from pool, each expected
// to have capacity maxSize, and never lets a Complete or Incomplete segment
// exceed maxSize bytes.
func NewScanner(pool *Pool, maxSize int) *Scanner {
	return &Scanner{pool: pool, maxSize: maxSize}
}

// Scan reads from r and sends Segments to out until r is exhausted or the
// done channel is closed by a cancelled downstream consumer. Scan closes
// out before returning. An I/O error (other than io.EOF) surfaces as a
// terminal Segment with Kind Incomplete, empty Data and Reason set to the
// underlying error, so the consumer can abort the run.
func (s *Scanner) Scan(r io.Reader, out chan<- Segment, done <-chan struct{}) {
	defer close(out)

	buf := s.pool.Get()
	eof := false
	for {
		for !eof && len(buf) < s.maxSize {
			room := buf[len(buf):cap(buf)]
			if len(room) == 0 {
				break
			}
			n, err := r.Read(room)
			buf = buf[:len(buf)+n]
			if err != nil {
				if err == io.EOF {
					eof = true
					break
				}
				s.pool.Put(buf)
				send(out, Segment{Kind: Incomplete, Reason: err}, done)
				return
			}
			if n == 0 {
				break
			}
		}

		if len(buf) == 0 {
			s.pool.Put(buf)
			return
		}

		if nl := bytes.LastIndexByte(buf, '\n'); nl >= 0 {
			cut := nl + 1
			seg := Segment{Kind: Complete, Data: buf[:cut], pool: s.pool, buf: buf}
			last := cut == len(buf) && eof
			if !send(out, seg, done) {
				seg.Release()
				return
			}
			if last {
				return
			}
			next := s.pool.Get()
			next = append(next, buf[cut:]...)
			buf = next
			continue
		}

		reason := ErrMaxSizeExceeded
		if eof && len(buf) < s.maxSize {
			reason = io.ErrUnexpectedEOF
		}
		seg := Segment{Kind: Incomplete, Data: buf, Reason: reason, pool: s.pool, buf: buf}
		done2 := eof
		if !send(out, seg, done) {
			seg.Release()
			return
		}
		if done2 {
			return
		}
		buf = s.pool.Get()
	}
}

func send(out chan<- Segment, seg Segment, done <-chan struct{}) bool {
	select {
	case out <- seg:
		return true
	case <-done:
		return false
	}
}
