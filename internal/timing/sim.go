package timing

// SimSource is a TickSource that never blocks. Each WaitOverflow advances a
// virtual clock by one tick, which makes delays observable in tests.
type SimSource struct {
	ticks   uint64
	running bool
	starts  int

	// OnTick, if set, is called after every overflow with the new tick count.
	OnTick func(ticks uint64)
}

func NewSimSource() *SimSource {
	return &SimSource{}
}

func (s *SimSource) Start() {
	s.running = true
	s.starts++
}

func (s *SimSource) WaitOverflow() {
	s.ticks++
	if s.OnTick != nil {
		s.OnTick(s.ticks)
	}
}

func (s *SimSource) Stop() {
	s.running = false
}

// Ticks returns the number of overflows seen so far.
func (s *SimSource) Ticks() uint64 { return s.ticks }

// Running reports whether the timer is between Start and Stop.
func (s *SimSource) Running() bool { return s.running }

// Starts returns how many times the timer was started.
func (s *SimSource) Starts() int { return s.starts }
