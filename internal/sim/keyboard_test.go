package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/funtimes-ti99kb/internal/keymap"
)

// pass drives every row once, like one scanner pass, and returns the column
// bytes read per row.
func pass(k *Keyboard) [keymap.Rows]byte {
	var out [keymap.Rows]byte
	for r := 0; r < keymap.Rows; r++ {
		_ = k.WriteRows(^byte(1 << r))
		out[r], _ = k.ReadColumns()
		_ = k.WriteRows(0xFF)
	}
	return out
}

func TestKeyboardOnlyActiveRowReads(t *testing.T) {
	k := NewKeyboard()
	k.Press(keymap.Position{Row: 2, Column: 3})
	cols := pass(k)
	for r, c := range cols {
		if r == 2 {
			assert.Equal(t, byte(0xFF&^(1<<3)), c)
			continue
		}
		assert.Equal(t, byte(0xFF), c, "row %d", r)
	}
	assert.Equal(t, 1, k.Passes())
}

func TestKeyboardScriptHoldsOnePass(t *testing.T) {
	k := NewKeyboard()
	require.NoError(t, k.Type("ab"))
	a, _ := keymap.Locate('a')
	b, _ := keymap.Locate('b')

	first := pass(k)
	assert.NotEqual(t, byte(0xFF), first[a.Key.Row], "a held in first pass")
	second := pass(k)
	assert.Equal(t, byte(0xFF&^(1<<b.Key.Column)), second[b.Key.Row], "b held in second pass")
	assert.Equal(t, byte(0xFF), second[a.Key.Row], "a released")
	assert.True(t, k.Idle())
	third := pass(k)
	for _, c := range third {
		assert.Equal(t, byte(0xFF), c)
	}
}

func TestKeyboardTypeUnknown(t *testing.T) {
	k := NewKeyboard()
	assert.Error(t, k.Type("\x7f"))
	assert.True(t, k.Idle())
}

func TestKeyboardReleaseAll(t *testing.T) {
	k := NewKeyboard()
	k.Press(keymap.Position{Row: 1, Column: 1})
	require.NoError(t, k.Type("x"))
	k.ReleaseAll()
	for _, c := range pass(k) {
		assert.Equal(t, byte(0xFF), c)
	}
}

func TestReceiverIgnoresNoiseBeforeStart(t *testing.T) {
	rx := NewReceiver()
	d, c := rx.Data(), rx.Clock()
	// clock pulses without a start sequence
	for i := 0; i < 8; i++ {
		_ = d.Out(gpio.High)
		_ = c.Out(gpio.High)
		_ = c.Out(gpio.Low)
	}
	assert.Empty(t, rx.Bytes())
	assert.False(t, rx.Busy())
}

func TestReceiverCallback(t *testing.T) {
	rx := NewReceiver()
	var got []byte
	rx.OnByte = func(b byte) { got = append(got, b) }
	d, c := rx.Data(), rx.Clock()

	_ = d.Out(gpio.High)
	_ = c.Out(gpio.High)
	_ = d.Out(gpio.Low) // start
	_ = c.Out(gpio.Low)
	for _, bit := range []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.Low, gpio.Low, gpio.Low, gpio.Low, gpio.High} {
		_ = d.Out(bit)
		_ = c.Out(gpio.High)
		_ = c.Out(gpio.Low)
	}
	assert.Equal(t, []byte{0x41}, got)
}

type fixedClock uint64

func (f *fixedClock) Ticks() uint64 { return uint64(*f) }

func TestTraceSegmentsMerge(t *testing.T) {
	var now fixedClock
	tr := NewTrace(&now)
	d, c := tr.Line("d"), tr.Line("c")
	_ = d.Out(gpio.High)
	_ = c.Out(gpio.High)
	now = 4
	_ = d.Out(gpio.High)
	now = 8
	_ = d.Out(gpio.Low)
	_ = c.Out(gpio.Low)
	segs := tr.Segments("d", "c", 12)
	assert.Equal(t, []Segment{
		{Data: gpio.High, Clock: gpio.High, From: 0, To: 8},
		{Data: gpio.Low, Clock: gpio.Low, From: 8, To: 12},
	}, segs)

	tr.Reset()
	assert.Empty(t, tr.Events())
}
