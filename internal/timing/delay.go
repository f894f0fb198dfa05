package timing

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// TickRate is the overflow rate of the delay timer. One overflow is one millisecond.
const TickRate = 1 * physic.KiloHertz

// TickSource is a free-running timer that reports overflow events.
type TickSource interface {
	// Start runs the timer.
	Start()
	// WaitOverflow blocks until the next overflow and clears it.
	WaitOverflow()
	// Stop halts the timer and clears any pending overflow.
	Stop()
}

// Delayer busy-waits whole milliseconds by counting overflows of a TickSource.
// Setup and teardown of the source are not compensated for, so every call runs
// slightly longer than requested.
type Delayer struct {
	src TickSource
}

func NewDelayer(src TickSource) *Delayer {
	return &Delayer{src: src}
}

// Delay blocks for ms overflows. Delay(0) returns immediately.
func (d *Delayer) Delay(ms uint) {
	if ms == 0 {
		return
	}
	d.src.Start()
	for count := uint(0); count < ms; count++ {
		d.src.WaitOverflow()
	}
	d.src.Stop()
}

// TickerSource is a TickSource backed by a time.Ticker running at TickRate.
type TickerSource struct {
	mu     sync.Mutex
	ticker *time.Ticker
}

func NewTickerSource() *TickerSource {
	return &TickerSource{}
}

func (s *TickerSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		s.ticker = time.NewTicker(TickRate.Period())
		return
	}
	s.ticker.Reset(TickRate.Period())
}

func (s *TickerSource) WaitOverflow() {
	s.mu.Lock()
	t := s.ticker
	s.mu.Unlock()
	if t == nil {
		return
	}
	<-t.C
}

func (s *TickerSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	// drop an overflow that fired between the last wait and Stop
	select {
	case <-s.ticker.C:
	default:
	}
}
