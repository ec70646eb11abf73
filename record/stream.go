package record

// Stream reads records front to back from a contiguous payload region.
type Stream struct {
	data []byte
	off  int
	last int
	err  error
}

// NewStream returns a stream over data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, last: -1}
}

// Next returns the next record. It returns false at the end of data or on a
// malformed record; Err tells the two apart.
func (s *Stream) Next() (Record, bool) {
	if s.err != nil || s.off >= len(s.data) {
		return nil, false
	}
	r, err := At(s.data, s.off)
	if err != nil {
		s.err = err
		return nil, false
	}
	s.last = s.off
	s.off += r.Len()
	return r, true
}

// Offset returns the offset of the record last returned by Next.
func (s *Stream) Offset() int { return s.last }

// Consumed returns the number of bytes read so far.
func (s *Stream) Consumed() int { return s.off }

// Err returns the first error encountered.
func (s *Stream) Err() error { return s.err }
