package sim

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Clock reports the current virtual time in ticks.
type Clock interface {
	Ticks() uint64
}

// Event is a single level change seen on a traced line.
type Event struct {
	Tick  uint64
	Line  string
	Level gpio.Level
}

// Trace samples level changes on named lines against a virtual clock.
type Trace struct {
	mu     sync.Mutex
	clock  Clock
	events []Event
}

func NewTrace(c Clock) *Trace {
	return &Trace{clock: c}
}

// Line returns a line that records into the trace under name.
func (t *Trace) Line(name string) *TraceLine {
	return &TraceLine{trace: t, name: name}
}

// Events returns a copy of everything recorded so far.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Reset drops all recorded events.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

func (t *Trace) record(name string, l gpio.Level) {
	t.mu.Lock()
	t.events = append(t.events, Event{Tick: t.clock.Ticks(), Line: name, Level: l})
	t.mu.Unlock()
}

// TraceLine is one named line of a Trace.
type TraceLine struct {
	trace *Trace
	name  string
}

func (l *TraceLine) Out(v gpio.Level) error {
	l.trace.record(l.name, v)
	return nil
}

func (l *TraceLine) String() string { return l.name }

// Segment is a span of ticks during which both lines held steady.
type Segment struct {
	Data  gpio.Level
	Clock gpio.Level
	From  uint64
	To    uint64
}

// Ticks returns the length of the segment.
func (s Segment) Ticks() uint64 { return s.To - s.From }

// Segments folds the trace of the named data and clock lines into spans of
// constant state, ending at end. Zero-length spans are dropped and adjacent
// spans with equal state are merged.
func (t *Trace) Segments(data, clock string, end uint64) []Segment {
	events := t.Events()
	var out []Segment
	var cur Segment
	started := false
	flush := func(at uint64) {
		if !started || at <= cur.From {
			return
		}
		seg := cur
		seg.To = at
		if n := len(out); n > 0 && out[n-1].Data == seg.Data && out[n-1].Clock == seg.Clock && out[n-1].To == seg.From {
			out[n-1].To = seg.To
			return
		}
		out = append(out, seg)
	}
	for _, e := range events {
		if e.Line != data && e.Line != clock {
			continue
		}
		flush(e.Tick)
		if !started || e.Tick > cur.From {
			cur.From = e.Tick
		}
		started = true
		if e.Line == data {
			cur.Data = e.Level
		} else {
			cur.Clock = e.Level
		}
	}
	flush(end)
	return out
}
