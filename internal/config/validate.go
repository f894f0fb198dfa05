package config

import (
	"fmt"
)

// PinError reports a missing or doubly assigned pin.
type PinError struct {
	Role string
	Pin  string
	Prev string // role already holding Pin, if any
}

func (e *PinError) Error() string {
	if e.Pin == "" {
		return fmt.Sprintf("pin for %s is not set", e.Role)
	}
	return fmt.Sprintf("pin %s assigned to both %s and %s", e.Pin, e.Prev, e.Role)
}

// Validate checks the configuration without mutating it.
func Validate(c *Config) error {
	switch c.Driver {
	case "gpio", "sim":
	default:
		return fmt.Errorf("driver %q: want gpio or sim", c.Driver)
	}

	if c.Timing.SignalDelayMs == 0 {
		return fmt.Errorf("timing.signal_delay_ms must be at least 1")
	}

	if c.Indicator.Enabled && c.Indicator.Pixels <= 0 {
		return fmt.Errorf("indicator.pixels must be positive, got %d", c.Indicator.Pixels)
	}

	// pin names only matter when driving real hardware
	if c.Driver != "gpio" {
		return nil
	}
	if n := len(c.Matrix.Rows); n != 8 {
		return fmt.Errorf("matrix.rows: need 8 pins, got %d", n)
	}
	if n := len(c.Matrix.Columns); n != 8 {
		return fmt.Errorf("matrix.columns: need 8 pins, got %d", n)
	}

	owner := map[string]string{}
	claim := func(role, pin string) error {
		if pin == "" {
			return &PinError{Role: role}
		}
		if prev, ok := owner[pin]; ok {
			return &PinError{Role: role, Pin: pin, Prev: prev}
		}
		owner[pin] = role
		return nil
	}
	for i, p := range c.Matrix.Rows {
		if err := claim(fmt.Sprintf("row %d", i), p); err != nil {
			return err
		}
	}
	for i, p := range c.Matrix.Columns {
		if err := claim(fmt.Sprintf("column %d", i), p); err != nil {
			return err
		}
	}
	if err := claim("link data", c.Link.Data); err != nil {
		return err
	}
	return claim("link clock", c.Link.Clock)
}
