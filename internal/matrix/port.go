package matrix

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
)

// Port drives the row lines and senses the column lines of the keyboard.
// Both sides are active low: a 0 bit drives a row or reports a closed contact.
type Port interface {
	// WriteRows sets the row lines, bit i is row i.
	WriteRows(mask byte) error
	// ReadColumns samples the column lines, bit i is column i.
	ReadColumns() (byte, error)
}

// Released is the row mask with every row inactive.
const Released byte = 0xFF

// GPIOPort is a Port over individual GPIO pins.
type GPIOPort struct {
	rows [keymap.Rows]gpio.PinOut
	cols [keymap.Columns]gpio.PinIn
}

// NewGPIOPort configures cols as pulled-up inputs and releases all rows.
func NewGPIOPort(rows []gpio.PinOut, cols []gpio.PinIn) (*GPIOPort, error) {
	if len(rows) != keymap.Rows {
		return nil, fmt.Errorf("matrix: need %d row pins, got %d", keymap.Rows, len(rows))
	}
	if len(cols) != keymap.Columns {
		return nil, fmt.Errorf("matrix: need %d column pins, got %d", keymap.Columns, len(cols))
	}
	p := &GPIOPort{}
	for i, r := range rows {
		if r == nil {
			return nil, fmt.Errorf("matrix: row %d pin missing", i)
		}
		p.rows[i] = r
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("matrix: column %d pin missing", i)
		}
		if err := c.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("matrix: column %d (%s): %w", i, c, err)
		}
		p.cols[i] = c
	}
	if err := p.WriteRows(Released); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *GPIOPort) WriteRows(mask byte) error {
	for i, r := range p.rows {
		if err := r.Out(gpio.Level(mask&(1<<i) != 0)); err != nil {
			return fmt.Errorf("matrix: row %d (%s): %w", i, r, err)
		}
	}
	return nil
}

func (p *GPIOPort) ReadColumns() (byte, error) {
	var v byte
	for i, c := range p.cols {
		if c.Read() == gpio.High {
			v |= 1 << i
		}
	}
	return v, nil
}
