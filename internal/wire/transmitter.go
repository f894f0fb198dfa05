// Package wire implements the keyboard's one-way clocked serial link.
//
// A frame is a start sequence followed by 8 data bits, MSB first:
//
//	SDA  ||||||||________XXXXXXXXXXXXXXXX...XXXXXXXXXXXXXXXX
//	SCL  ||||||||________||||||||________...||||||||________
//	     <-4ms -><-4ms -><-4ms -><-4ms ->...<-4ms -><-4ms ->
//	     <- START SEQ. -><-------  8-bits of DATA   ------->
//
// There is no parity, no stop condition and no acknowledgement. A receiver
// only needs to detect the start sequence and shift in one bit per clock pulse.
package wire

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// SignalDelay is how long every level is held, in milliseconds.
const SignalDelay uint = 4

// Delayer blocks for a number of milliseconds.
type Delayer interface {
	Delay(ms uint)
}

// Transmitter drives the data and clock lines.
type Transmitter struct {
	Data  Line
	Clock Line
	Delay Delayer

	// Hold overrides SignalDelay when non-zero.
	Hold uint
}

func NewTransmitter(data, clock Line, d Delayer) *Transmitter {
	return &Transmitter{Data: data, Clock: clock, Delay: d}
}

func (t *Transmitter) hold() {
	h := t.Hold
	if h == 0 {
		h = SignalDelay
	}
	t.Delay.Delay(h)
}

func (t *Transmitter) set(data, clock gpio.Level) error {
	if err := t.Data.Out(data); err != nil {
		return fmt.Errorf("wire: data: %w", err)
	}
	if err := t.Clock.Out(clock); err != nil {
		return fmt.Errorf("wire: clock: %w", err)
	}
	return nil
}

// Idle puts both lines in the idle (High) state without waiting.
func (t *Transmitter) Idle() error {
	return t.set(gpio.High, gpio.High)
}

// Start sends the start sequence: both lines High, then both Low.
func (t *Transmitter) Start() error {
	if err := t.set(gpio.High, gpio.High); err != nil {
		return err
	}
	t.hold()
	if err := t.set(gpio.Low, gpio.Low); err != nil {
		return err
	}
	t.hold()
	return nil
}

// WriteBit presents bit on the data line for one full clock pulse.
func (t *Transmitter) WriteBit(bit bool) error {
	if err := t.Data.Out(gpio.Level(bit)); err != nil {
		return fmt.Errorf("wire: data: %w", err)
	}
	if err := t.Clock.Out(gpio.High); err != nil {
		return fmt.Errorf("wire: clock: %w", err)
	}
	t.hold()
	if err := t.Clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("wire: clock: %w", err)
	}
	t.hold()
	return nil
}

// WriteFrame sends b MSB first, preceded by a start sequence if start is set.
func (t *Transmitter) WriteFrame(start bool, b byte) error {
	if start {
		if err := t.Start(); err != nil {
			return err
		}
	}
	for i := 0; i < 8; i++ {
		if err := t.WriteBit(b&0x80 != 0); err != nil {
			return err
		}
		b <<= 1
	}
	return nil
}

// SendKey resets the lines to idle, waits one signal delay and sends b as a
// complete frame. The reset precedes every byte, not just the first.
func (t *Transmitter) SendKey(b byte) error {
	if err := t.Idle(); err != nil {
		return err
	}
	t.hold()
	return t.WriteFrame(true, b)
}
