package downsample

import (
	"errors"
	"fmt"
)

// Streamer is the bounded-memory LTTB variant. It buffers only the bucket
// awaiting selection, its lookahead bucket, and the previously selected
// anchor, so memory is proportional to bucket size rather than series
// length. The series length must be declared up front because bucket
// geometry depends on it.
//
// A Streamer is single-use: Push every point in order, then Flush. Its
// output is identical to LTTB over the same points and threshold.
type Streamer struct {
	n         int
	threshold int
	every     float64
	pass      bool

	idx      int
	bucket   int // index of the interior bucket pending selection
	prev     Point
	cur      []Point
	next     []Point
	out      []Point
	last     Point
	haveLast bool
	done     bool
}

// NewStreamer prepares a streaming pass over a series of n points reduced to
// at most threshold points.
func NewStreamer(n, threshold int) (*Streamer, error) {
	if n < 0 {
		return nil, fmt.Errorf("downsample: negative series length %d", n)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("downsample: negative threshold %d", threshold)
	}
	s := &Streamer{n: n, threshold: threshold}
	if n == 0 || threshold <= 2 || threshold >= n {
		s.pass = true
		return s, nil
	}
	s.every = float64(n-2) / float64(threshold-2)
	s.out = make([]Point, 0, threshold)
	return s, nil
}

// Push feeds the next point in time order.
func (s *Streamer) Push(p Point) error {
	if s == nil {
		return errors.New("downsample: nil streamer")
	}
	if s.done {
		return errors.New("downsample: push after flush")
	}
	if s.idx >= s.n {
		return fmt.Errorf("downsample: push beyond declared length %d", s.n)
	}

	if s.pass {
		s.out = append(s.out, p)
		s.idx++
		return nil
	}

	switch {
	case s.idx == 0:
		s.out = append(s.out, p)
		s.prev = p
	case s.idx == s.n-1:
		s.last = p
		s.haveLast = true
	default:
		b := s.bucketOf(s.idx)
		// Points arrive in order and buckets are non-empty, so b moves
		// past s.bucket+1 only once the lookahead bucket is complete.
		if b > s.bucket+1 {
			s.finalize(s.next)
			s.cur, s.next = s.next, nil
			s.bucket++
		}
		if b == s.bucket {
			s.cur = append(s.cur, p)
		} else {
			s.next = append(s.next, p)
		}
	}
	s.idx++
	return nil
}

// Flush selects the remaining buckets and returns the full output sequence.
func (s *Streamer) Flush() ([]Point, error) {
	if s == nil {
		return nil, errors.New("downsample: nil streamer")
	}
	if s.done {
		return nil, errors.New("downsample: flush called twice")
	}
	if s.idx != s.n {
		return nil, fmt.Errorf("downsample: series short: got %d of %d points", s.idx, s.n)
	}
	s.done = true

	if s.pass {
		return s.out, nil
	}

	// At most the final two interior buckets remain; the very last one uses
	// the fixed last point as its centroid, matching the batch variant's
	// capped averaging range.
	for {
		if s.bucket == s.threshold-3 {
			s.finalize([]Point{s.last})
			break
		}
		s.finalize(s.next)
		s.cur, s.next = s.next, nil
		s.bucket++
	}
	s.out = append(s.out, s.last)
	return s.out, nil
}

// finalize selects from the pending bucket against the centroid of ref.
func (s *Streamer) finalize(ref []Point) {
	cx, cy := centroid(ref)
	sel := selectPoint(s.prev, s.cur, cx, cy)
	s.prev = s.cur[sel]
	s.out = append(s.out, s.cur[sel])
}

func (s *Streamer) bucketOf(idx int) int {
	// Inverse of bucketStart; the float estimate can be off by one near
	// bucket boundaries, so probe to the exact bucket.
	b := int(float64(idx-1) / s.every)
	for bucketStart(b, s.every) > idx {
		b--
	}
	for b+1 <= s.threshold-3 && bucketStart(b+1, s.every) <= idx {
		b++
	}
	return b
}
