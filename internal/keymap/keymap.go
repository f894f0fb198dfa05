// Package keymap holds the TI-99/4A keyboard matrix layout and the translation
// of scan codes to characters under the shift, function and control modifiers.
package keymap

// ScanCode identifies a physical key. 0 means no key.
type ScanCode uint8

// Matrix dimensions.
const (
	Rows    = 8
	Columns = 8
)

// Modifier scan codes. Space (47) is printable.
const (
	CodeShift     ScanCode = 44
	CodeShiftLock ScanCode = 45
	CodeControl   ScanCode = 46
	CodeSpace     ScanCode = 47
	CodeFunction  ScanCode = 48

	MaxCode ScanCode = 48
)

// Characters above 0x7F are display codes understood by the receiving terminal.
const (
	ArrowUp    byte = 128
	ArrowLeft  byte = 129
	ArrowRight byte = 130
	ArrowDown  byte = 131
)

// layout maps (row, column) to a scan code. Read it through At.
var layout = [Rows][Columns]ScanCode{
	{11, 43, 42, 41, 40, 22, 0, 0},
	{47, 31, 30, 29, 28, 32, 0, 0},
	{33, 20, 19, 18, 17, 21, 0, 0},
	{0, 9, 8, 7, 6, 10, 0, 0},
	{48, 2, 3, 4, 5, 1, 45, 0},
	{44, 24, 25, 26, 27, 23, 0, 0},
	{46, 13, 14, 15, 16, 12, 0, 0},
	{0, 36, 37, 38, 39, 35, 0, 0},
}

// Position is a crossing of a row line and a column line.
type Position struct {
	Row    int
	Column int
}

// At returns the scan code at p, or 0 when p is outside the matrix.
func At(p Position) ScanCode {
	if p.Row < 0 || p.Row >= Rows || p.Column < 0 || p.Column >= Columns {
		return 0
	}
	return layout[p.Row][p.Column]
}

// PositionOf returns where code sits in the matrix.
func PositionOf(code ScanCode) (Position, bool) {
	if code == 0 {
		return Position{}, false
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			if layout[r][c] == code {
				return Position{Row: r, Column: c}, true
			}
		}
	}
	return Position{}, false
}

// IsModifier reports whether code only changes modifier state.
func IsModifier(code ScanCode) bool {
	switch code {
	case CodeShift, CodeShiftLock, CodeControl, CodeFunction:
		return true
	}
	return false
}

// Modifiers is the modifier state collected during one scan pass.
type Modifiers struct {
	Shift    bool
	Lock     bool
	Control  bool
	Function bool
}

// Active reports whether layer l is selected by m. An engaged lock shifts.
func (m Modifiers) Active(l Layer) bool {
	switch l {
	case Base:
		return true
	case Shifted:
		return m.Shift || m.Lock
	case Function:
		return m.Function
	case Control:
		return m.Control
	}
	return false
}
