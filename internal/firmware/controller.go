// Package firmware sequences the scanner, the key ring and the serial link in
// a single cooperative loop.
package firmware

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ti99kb/internal/keybuf"
	"github.com/coreman2200/funtimes-ti99kb/internal/matrix"
	"github.com/coreman2200/funtimes-ti99kb/internal/wire"
)

// Default timings in milliseconds.
const (
	DefaultKeyReadDelay uint = 115
	DefaultBootDelay    uint = 1000

	// SyncByte is sent once after boot to reset the receiver.
	SyncByte byte = 0x00
)

// Delayer blocks for a number of milliseconds.
type Delayer interface {
	Delay(ms uint)
}

// Observer is told about keys as they move through the controller. Calls are
// made synchronously from the loop and must not block.
type Observer interface {
	KeyLatched(hit matrix.KeyHit)
	KeySent(b byte)
}

// Controller owns every piece of mutable state: the scanner's key hit and
// modifiers, the key ring and the link. Only the goroutine running the loop
// may call its methods.
type Controller struct {
	Scanner *matrix.Scanner
	Ring    keybuf.Ring
	Tx      *wire.Transmitter
	Delay   Delayer

	// KeyReadDelay is the pause after each accepted key press. It doubles as
	// debounce and typing-rate limit, so a slow typist may want it longer.
	KeyReadDelay uint
	BootDelay    uint

	Log       zerolog.Logger
	Observers []Observer

	sent uint64
}

func New(scanner *matrix.Scanner, tx *wire.Transmitter, d Delayer) *Controller {
	return &Controller{
		Scanner:      scanner,
		Tx:           tx,
		Delay:        d,
		KeyReadDelay: DefaultKeyReadDelay,
		BootDelay:    DefaultBootDelay,
		Log:          zerolog.Nop(),
	}
}

// Boot idles the link, waits out the boot delay and sends the sync byte.
func (c *Controller) Boot() error {
	if err := c.Tx.Idle(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	c.Delay.Delay(c.BootDelay)
	if err := c.send(SyncByte); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	c.Log.Info().Uint("boot_delay_ms", c.BootDelay).Msg("link synchronised")
	return nil
}

// ConsumePendingKey moves a latched key into the ring and waits KeyReadDelay.
// The hit is acknowledged even when it resolved to no character.
func (c *Controller) ConsumePendingKey() {
	if !c.Scanner.Pending() {
		return
	}
	hit := c.Scanner.Hit()
	if hit.Char != 0 {
		c.Ring.Push(hit.Char)
		for _, o := range c.Observers {
			o.KeyLatched(hit)
		}
		c.Log.Debug().
			Int("row", hit.Row).
			Int("col", hit.Column).
			Uint8("code", uint8(hit.Code)).
			Uint8("char", hit.Char).
			Msg("key latched")
		c.Delay.Delay(c.KeyReadDelay)
	}
	c.Scanner.Ack()
}

// Drain sends everything in the ring.
func (c *Controller) Drain() error {
	for {
		b := c.Ring.Pop()
		if b == 0 {
			return nil
		}
		if err := c.send(b); err != nil {
			return err
		}
	}
}

func (c *Controller) send(b byte) error {
	if err := c.Tx.SendKey(b); err != nil {
		return fmt.Errorf("send %#02x: %w", b, err)
	}
	c.sent++
	for _, o := range c.Observers {
		o.KeySent(b)
	}
	return nil
}

// Step runs one loop iteration: scan, consume, drain.
func (c *Controller) Step() error {
	if _, err := c.Scanner.Scan(); err != nil {
		return err
	}
	c.ConsumePendingKey()
	return c.Drain()
}

// Run boots and then steps until ctx is done or the hardware fails. ctx is
// only checked between iterations; delays always run to completion.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Boot(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// Sent returns the number of bytes put on the wire, including the sync byte.
func (c *Controller) Sent() uint64 { return c.sent }
