package fxplc

import "context"

// scriptedTransport is a shared test double: each Write call consumes
// the next canned response (bytes dribbled out one at a time, matching
// the codec's byte-at-a-time reads) or the next canned error.
type scriptedTransport struct {
	responses [][]byte
	errors    []error

	writes []byte // concatenation of every frame written, for assertions
	calls  int

	idx     int
	pending []byte
	pendErr error
	closed  bool
}

func (s *scriptedTransport) Write(ctx context.Context, data []byte) error {
	s.writes = append(s.writes, data...)
	s.calls++
	if s.idx < len(s.responses) {
		s.pending = s.responses[s.idx]
	} else {
		s.pending = nil
	}
	if s.idx < len(s.errors) {
		s.pendErr = s.errors[s.idx]
	} else {
		s.pendErr = nil
	}
	s.idx++
	return nil
}

func (s *scriptedTransport) Read(ctx context.Context, size int) ([]byte, error) {
	if len(s.pending) == 0 {
		if s.pendErr != nil {
			return nil, s.pendErr
		}
		return nil, errTimeout
	}
	n := 1
	if n > size {
		n = size
	}
	b := s.pending[:n]
	s.pending = s.pending[n:]
	return b, nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

var _ Transport = (*scriptedTransport)(nil)
