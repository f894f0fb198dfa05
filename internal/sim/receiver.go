package sim

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Receiver decodes the keyboard link from logical level changes.
//
// A start is the data line falling while the clock is high; data only ever
// changes while the clock is low otherwise. After a start, each rising clock
// edge shifts in one bit, MSB first, and eight bits make a byte.
type Receiver struct {
	mu    sync.Mutex
	data  gpio.Level
	clock gpio.Level
	armed bool
	bits  int
	cur   byte
	got   []byte

	// OnByte, if set, is called with each decoded byte.
	OnByte func(b byte)
}

func NewReceiver() *Receiver {
	return &Receiver{}
}

// Data returns the line to attach to the transmitter's data output.
func (r *Receiver) Data() *ReceiverLine { return &ReceiverLine{r: r, data: true} }

// Clock returns the line to attach to the transmitter's clock output.
func (r *Receiver) Clock() *ReceiverLine { return &ReceiverLine{r: r} }

// Bytes returns every byte decoded so far.
func (r *Receiver) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.got...)
}

// Busy reports whether a frame has started but not completed.
func (r *Receiver) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

func (r *Receiver) setData(l gpio.Level) {
	r.mu.Lock()
	if r.clock == gpio.High && r.data == gpio.High && l == gpio.Low {
		r.armed = true
		r.bits = 0
		r.cur = 0
	}
	r.data = l
	r.mu.Unlock()
}

func (r *Receiver) setClock(l gpio.Level) {
	r.mu.Lock()
	rising := r.clock == gpio.Low && l == gpio.High
	r.clock = l
	if !rising || !r.armed {
		r.mu.Unlock()
		return
	}
	r.cur <<= 1
	if r.data == gpio.High {
		r.cur |= 1
	}
	r.bits++
	if r.bits < 8 {
		r.mu.Unlock()
		return
	}
	b := r.cur
	r.armed = false
	r.got = append(r.got, b)
	cb := r.OnByte
	r.mu.Unlock()
	if cb != nil {
		cb(b)
	}
}

// ReceiverLine feeds one signal into a Receiver.
type ReceiverLine struct {
	r    *Receiver
	data bool
}

func (l *ReceiverLine) Out(v gpio.Level) error {
	if l.data {
		l.r.setData(v)
	} else {
		l.r.setClock(v)
	}
	return nil
}
