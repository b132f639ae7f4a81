package keypad

const (
	Rows   = 4
	Cols   = 4
	Layers = 4
)

// Key is a logical key: its position in the matrix.
type Key struct {
	Row, Col int
}

// Index returns the row-major index of k.
func (k Key) Index() int {
	return k.Row*Cols + k.Col
}

// Cap describes one physical key. Character keys carry 4 layers that are
// cycled by repeated presses; control keys carry a Control type instead.
type Cap struct {
	Label   rune
	Control Type
	Layers  [Layers]rune
}

// Layout maps every matrix position to its Cap.
type Layout [Rows][Cols]Cap

func chars(label rune, layers string) Cap {
	c := Cap{Label: label, Control: Character}
	copy(c.Layers[:], []rune(layers))
	return c
}

func control(label rune, t Type) Cap {
	return Cap{Label: label, Control: t}
}

// DefaultLayout is the 4x4 membrane keypad fitted to the terminal.
//
//	1 2 3 A
//	4 5 6 B
//	7 8 9 C
//	* 0 # D
var DefaultLayout = Layout{
	{chars('1', "1.,?"), chars('2', "abc2"), chars('3', "def3"), chars('A', "sz+=")},
	{chars('4', "ghi4"), chars('5', "jkl5"), chars('6', "mno6"), chars('B', "!:()")},
	{chars('7', "pqr7"), chars('8', "tuv8"), chars('9', "wxy9"), control('C', ClearAll)},
	{control('*', AdvanceCursor), chars('0', "0 .-"), control('#', Commit), control('D', DeleteLast)},
}

// Lookup returns the cap at (row, col).
func (l *Layout) Lookup(row, col int) (Cap, bool) {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return Cap{}, false
	}
	return l[row][col], true
}

// Find returns the position of the key printed with label.
func (l *Layout) Find(label rune) (Key, bool) {
	for r := range l {
		for c := range l[r] {
			if l[r][c].Label == label {
				return Key{Row: r, Col: c}, true
			}
		}
	}
	return Key{}, false
}
