package rng

// Sequence replays fixed draws, cycling when exhausted. It makes simulator
// runs reproducible in tests and demos.
type Sequence struct {
	Floats []float64
	Ints   []int
	fi, ii int
}

func (s *Sequence) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

// Intn returns the next scripted int reduced modulo n.
func (s *Sequence) Intn(n int) int {
	if n <= 0 || len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}
