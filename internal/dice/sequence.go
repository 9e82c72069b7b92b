package dice

// Sequence is a scripted Source. Each call returns the next value, reduced
// modulo n so scripts never produce out-of-range results. When the script is
// exhausted the last value repeats; an empty script always returns 0.
//
// Values are zero-based, as with Intn: to force a natural 20, script 19.
type Sequence struct {
	values []int
	pos    int
}

// NewSequence creates a scripted source.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

// Intn implements Source.
func (s *Sequence) Intn(n int) int {
	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	i := s.pos
	if i >= len(s.values) {
		i = len(s.values) - 1
	} else {
		s.pos++
	}
	v := s.values[i] % n
	if v < 0 {
		v += n
	}
	return v
}

// Push appends more scripted values.
func (s *Sequence) Push(values ...int) {
	s.values = append(s.values, values...)
}

// Remaining returns how many scripted values have not been consumed.
func (s *Sequence) Remaining() int {
	return len(s.values) - s.pos
}
