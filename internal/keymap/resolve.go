package keymap

// Layer is one modifier plane of the key table.
type Layer uint8

const (
	Base Layer = iota
	Shifted
	Function
	Control

	numLayers
)

func (l Layer) String() string {
	switch l {
	case Base:
		return "base"
	case Shifted:
		return "shift"
	case Function:
		return "func"
	case Control:
		return "ctrl"
	}
	return "unknown"
}

// Precedence is the order in which layers are tried. The first active layer
// that defines a character for the key wins.
var Precedence = [...]Layer{Control, Function, Shifted, Base}

// layers holds one character per layer. 0 leaves the layer undefined, so the
// next layer in Precedence is tried.
type layers [numLayers]byte

func key(base, shifted byte) layers { return layers{Base: base, Shifted: shifted} }

func (k layers) fn(c byte) layers   { k[Function] = c; return k }
func (k layers) ctrl(c byte) layers { k[Control] = c; return k }

var table = [MaxCode + 1]layers{
	1:  key('1', '!'),
	2:  key('2', '@'),
	3:  key('3', '#'),
	4:  key('4', '$'),
	5:  key('5', '%'),
	6:  key('6', '^'),
	7:  key('7', '&'),
	8:  key('8', '*'),
	9:  key('9', '('),
	10: key('0', ')'),
	11: key('=', '+'),
	12: key('q', 'Q').ctrl(17),
	13: key('w', 'W').fn('~'),
	14: key('e', 'E').fn(ArrowUp),
	15: key('r', 'R').fn('['),
	16: key('t', 'T').fn(']'),
	17: key('y', 'Y'),
	18: key('u', 'U').fn('_'),
	19: key('i', 'I').fn('?'),
	20: key('o', 'O').fn('\''),
	21: key('p', 'P').fn('"'),
	22: key('/', '-'),
	23: key('a', 'A').fn('|'),
	24: key('s', 'S').fn(ArrowLeft).ctrl(19),
	25: key('d', 'D').fn(ArrowRight),
	26: key('f', 'F').fn('{'),
	27: key('g', 'G').fn('}'),
	28: key('h', 'H').ctrl(8),
	29: key('j', 'J'),
	30: key('k', 'K'),
	31: key('l', 'L'),
	32: key(';', ':'),
	33: {Base: '\n'},
	35: key('z', 'Z').fn('\\').ctrl(26),
	36: key('x', 'X').fn(ArrowDown),
	37: key('c', 'C').fn('`').ctrl(3),
	38: key('v', 'V'),
	39: key('b', 'B'),
	40: key('n', 'N'),
	41: key('m', 'M'),
	42: key(',', '<'),
	43: key('.', '>'),
	47: {Base: ' '},
}

// Rule is a single (layer, character) entry for a key.
type Rule struct {
	Layer Layer
	Char  byte
}

// Rules lists the layers code defines, in precedence order.
func Rules(code ScanCode) []Rule {
	if code > MaxCode {
		return nil
	}
	var out []Rule
	for _, l := range Precedence {
		if c := table[code][l]; c != 0 {
			out = append(out, Rule{Layer: l, Char: c})
		}
	}
	return out
}

// Resolve translates code to a character under m. Modifier codes, unmapped
// codes and 0 all resolve to 0, which is indistinguishable from NUL.
func Resolve(code ScanCode, m Modifiers) byte {
	if code > MaxCode {
		return 0
	}
	for _, l := range Precedence {
		if !m.Active(l) {
			continue
		}
		if c := table[code][l]; c != 0 {
			return c
		}
	}
	return 0
}

// Chord is the set of keys that must be held together to produce a character.
type Chord struct {
	Key       Position
	Modifiers []Position
}

// Positions returns the modifier positions followed by the key position.
func (c Chord) Positions() []Position {
	out := make([]Position, 0, len(c.Modifiers)+1)
	out = append(out, c.Modifiers...)
	return append(out, c.Key)
}

var layerModifier = [numLayers]ScanCode{
	Shifted:  CodeShift,
	Function: CodeFunction,
	Control:  CodeControl,
}

// Locate finds a chord that resolves to ch, preferring the fewest modifiers.
func Locate(ch byte) (Chord, bool) {
	if ch == 0 {
		return Chord{}, false
	}
	for _, l := range []Layer{Base, Shifted, Function, Control} {
		for code := ScanCode(1); code <= MaxCode; code++ {
			if table[code][l] != ch {
				continue
			}
			pos, ok := PositionOf(code)
			if !ok {
				continue
			}
			chord := Chord{Key: pos}
			if mod := layerModifier[l]; mod != 0 {
				mp, _ := PositionOf(mod)
				chord.Modifiers = []Position{mp}
			}
			return chord, true
		}
	}
	return Chord{}, false
}
