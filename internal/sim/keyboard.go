// Package sim provides simulated hardware: a keyboard matrix that types
// scripted chords, a line trace sampler and a receiver for the serial link.
package sim

import (
	"fmt"
	"sync"

	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
)

// Keyboard is a simulated 8x8 contact matrix. It behaves like the hardware
// port: rows are driven active low and closed contacts pull columns low.
//
// Scripted chords are held for exactly one complete pass over all rows and
// then released, which is how a quick typist looks to a polled scanner.
type Keyboard struct {
	mu      sync.Mutex
	rows    byte
	down    map[keymap.Position]bool
	script  [][]keymap.Position
	current []keymap.Position
	reads   int
	passes  int
}

func NewKeyboard() *Keyboard {
	return &Keyboard{rows: 0xFF, down: map[keymap.Position]bool{}}
}

// Press closes the contacts at ps until Release.
func (k *Keyboard) Press(ps ...keymap.Position) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, p := range ps {
		k.down[p] = true
	}
}

// Release opens the contacts at ps.
func (k *Keyboard) Release(ps ...keymap.Position) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, p := range ps {
		delete(k.down, p)
	}
}

// ReleaseAll opens every contact, including a scripted chord in progress.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.down = map[keymap.Position]bool{}
	k.current = nil
}

// Queue appends chords to the typing script.
func (k *Keyboard) Queue(chords ...keymap.Chord) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, c := range chords {
		k.script = append(k.script, c.Positions())
	}
	if k.current == nil {
		k.advance()
	}
}

// Type queues the chords needed to produce s.
func (k *Keyboard) Type(s string) error {
	chords := make([]keymap.Chord, 0, len(s))
	for i := 0; i < len(s); i++ {
		c, ok := keymap.Locate(s[i])
		if !ok {
			return fmt.Errorf("sim: no key produces %q", s[i])
		}
		chords = append(chords, c)
	}
	k.Queue(chords...)
	return nil
}

// Idle reports whether the script is exhausted and nothing is held.
func (k *Keyboard) Idle() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current == nil && len(k.script) == 0 && len(k.down) == 0
}

// Passes returns the number of complete row passes observed.
func (k *Keyboard) Passes() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.passes
}

// Reads returns the number of column reads.
func (k *Keyboard) Reads() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.reads
}

func (k *Keyboard) WriteRows(mask byte) error {
	k.mu.Lock()
	k.rows = mask
	k.mu.Unlock()
	return nil
}

func (k *Keyboard) ReadColumns() (byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.reads++
	cols := byte(0xFF)
	for p := range k.down {
		if k.rows&(1<<p.Row) == 0 {
			cols &^= 1 << p.Column
		}
	}
	if k.rows == ^byte(1<<(keymap.Rows-1)) {
		k.passes++
		if k.current != nil {
			k.advance()
		}
	}
	return cols, nil
}

// advance releases the held chord and presses the next one. k.mu must be held.
func (k *Keyboard) advance() {
	for _, p := range k.current {
		delete(k.down, p)
	}
	k.current = nil
	if len(k.script) == 0 {
		return
	}
	k.current, k.script = k.script[0], k.script[1:]
	for _, p := range k.current {
		k.down[p] = true
	}
}
