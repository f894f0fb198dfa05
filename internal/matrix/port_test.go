package matrix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func testPins() ([]*gpiotest.Pin, []*gpiotest.Pin, []gpio.PinOut, []gpio.PinIn) {
	var rows, cols []*gpiotest.Pin
	var outs []gpio.PinOut
	var ins []gpio.PinIn
	for i := 0; i < 8; i++ {
		r := &gpiotest.Pin{N: fmt.Sprintf("ROW%d", i), Num: i}
		c := &gpiotest.Pin{N: fmt.Sprintf("COL%d", i), Num: 8 + i, L: gpio.High}
		rows, cols = append(rows, r), append(cols, c)
		outs, ins = append(outs, r), append(ins, c)
	}
	return rows, cols, outs, ins
}

func TestGPIOPortSetup(t *testing.T) {
	rows, cols, outs, ins := testPins()
	_, err := NewGPIOPort(outs, ins)
	require.NoError(t, err)
	for i := range rows {
		assert.Equal(t, gpio.High, rows[i].Read(), "row %d released", i)
		assert.Equal(t, gpio.PullUp, cols[i].P, "column %d pulled up", i)
	}
}

func TestGPIOPortWriteRows(t *testing.T) {
	rows, _, outs, ins := testPins()
	p, err := NewGPIOPort(outs, ins)
	require.NoError(t, err)

	require.NoError(t, p.WriteRows(^byte(1<<3)))
	for i, r := range rows {
		want := gpio.High
		if i == 3 {
			want = gpio.Low
		}
		assert.Equal(t, want, r.Read(), "row %d", i)
	}
}

func TestGPIOPortReadColumns(t *testing.T) {
	_, cols, outs, ins := testPins()
	p, err := NewGPIOPort(outs, ins)
	require.NoError(t, err)

	v, err := p.ReadColumns()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), v, "pull-ups read high when nothing is closed")

	cols[2].L = gpio.Low
	cols[5].L = gpio.Low
	v, err = p.ReadColumns()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF&^(1<<2|1<<5)), v)
}

func TestGPIOPortPinCount(t *testing.T) {
	_, _, outs, ins := testPins()
	_, err := NewGPIOPort(outs[:7], ins)
	assert.Error(t, err)
	_, err = NewGPIOPort(outs, ins[:3])
	assert.Error(t, err)

	outs[2] = nil
	_, err = NewGPIOPort(outs, ins)
	assert.Error(t, err)
}

func TestScannerOverGPIO(t *testing.T) {
	// one closed contact at row 5 column 1 ('s'); the column only reads low
	// while row 5 is driven
	rows, cols, outs, ins := testPins()
	p, err := NewGPIOPort(outs, ins)
	require.NoError(t, err)
	port := &contactPort{GPIOPort: p, rows: rows, cols: cols, row: 5, col: 1}

	s := NewScanner(port)
	row, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, 6, row)
	assert.Equal(t, byte('s'), s.Hit().Char)
}

// contactPort closes a single contact by mirroring a row pin onto a column pin.
type contactPort struct {
	*GPIOPort
	rows     []*gpiotest.Pin
	cols     []*gpiotest.Pin
	row, col int
}

func (c *contactPort) WriteRows(mask byte) error {
	if err := c.GPIOPort.WriteRows(mask); err != nil {
		return err
	}
	c.cols[c.col].L = c.rows[c.row].Read()
	return nil
}
