package wire

import (
	"periph.io/x/conn/v3/gpio"
)

// Line is one output signal of the link at the logical level.
// gpio.PinOut satisfies it directly when the driver is not inverting.
type Line interface {
	Out(l gpio.Level) error
}

type inverted struct {
	pin gpio.PinOut
}

// Invert wraps pin so a logical High drives the pin electrically low. The
// keyboard's line drivers are open-collector transistors, which invert.
func Invert(pin gpio.PinOut) Line {
	return &inverted{pin: pin}
}

func (i *inverted) Out(l gpio.Level) error {
	return i.pin.Out(!l)
}

func (i *inverted) String() string {
	return "inverted(" + i.pin.String() + ")"
}

type tee []Line

// Tee duplicates every level change onto all lines, in order. The first error stops the write.
func Tee(lines ...Line) Line {
	return tee(lines)
}

func (t tee) Out(l gpio.Level) error {
	for _, ln := range t {
		if err := ln.Out(l); err != nil {
			return err
		}
	}
	return nil
}
