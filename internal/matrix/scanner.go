// Package matrix scans the keyboard matrix and latches one key hit at a time.
package matrix

import (
	"fmt"

	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
)

// KeyHit is the single latched, unconsumed key press.
type KeyHit struct {
	Row    int
	Column int
	Code   keymap.ScanCode
	Char   byte
}

// Scanner polls a Port. It is Idle until a printable key is found, then
// Pending until Ack is called. A Pending scanner does not touch the port.
type Scanner struct {
	port    Port
	mods    keymap.Modifiers
	hit     KeyHit
	pending bool
}

func NewScanner(port Port) *Scanner {
	return &Scanner{port: port}
}

// Scan runs one pass over all rows. It returns the 1-based row of the latched
// key, or 0 when nothing was latched or a previous hit is still pending.
// When several printable keys are down, the last one in row-major order wins.
func (s *Scanner) Scan() (int, error) {
	if s.pending {
		return 0, nil
	}
	s.hit.Code = 0
	s.hit.Char = 0
	s.resetModifiers()

	ret := 0
	for row := 0; row < keymap.Rows; row++ {
		if err := s.port.WriteRows(^byte(1 << row)); err != nil {
			return 0, fmt.Errorf("scan row %d: %w", row, err)
		}
		cols, err := s.port.ReadColumns()
		if err != nil {
			return 0, fmt.Errorf("scan row %d: %w", row, err)
		}
		if err := s.port.WriteRows(Released); err != nil {
			return 0, fmt.Errorf("release row %d: %w", row, err)
		}
		if cols == 0xFF {
			continue
		}
		for col := 0; col < keymap.Columns; col++ {
			if cols&(1<<col) != 0 {
				continue
			}
			code := keymap.At(keymap.Position{Row: row, Column: col})
			switch code {
			case 0:
			case keymap.CodeShift:
				s.mods.Shift = true
			case keymap.CodeShiftLock:
				s.mods.Shift = true
				s.mods.Lock = true
			case keymap.CodeControl:
				s.mods.Control = true
			case keymap.CodeFunction:
				s.mods.Function = true
			default:
				s.hit = KeyHit{Row: row, Column: col, Code: code}
				s.pending = true
				ret = row + 1
			}
		}
	}
	if s.pending && s.hit.Code != 0 {
		s.hit.Char = keymap.Resolve(s.hit.Code, s.mods)
	}
	return ret, nil
}

// resetModifiers clears every modifier flag, lock included. The Alpha Lock
// key latches mechanically, so lock holds only while code 45 is sensed.
func (s *Scanner) resetModifiers() {
	s.mods = keymap.Modifiers{}
}

// Pending reports whether a key hit is latched and not yet consumed.
func (s *Scanner) Pending() bool { return s.pending }

// Hit returns the latched key hit. It is only meaningful while Pending.
func (s *Scanner) Hit() KeyHit { return s.hit }

// Modifiers returns the modifier state from the last pass.
func (s *Scanner) Modifiers() keymap.Modifiers { return s.mods }

// Ack consumes the pending hit and returns the scanner to Idle.
func (s *Scanner) Ack() {
	s.pending = false
}
