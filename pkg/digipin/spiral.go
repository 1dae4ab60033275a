package digipin

// Alphabet lists the 16 DIGIPIN symbols. A symbol's position is its index in
// the spiral grid.
const Alphabet = "23456789CFJKLMPT"

// spiral holds the published grid, north row first:
//
//	F C 9 8
//	J 3 2 7
//	K 4 5 6
//	L M P T
var spiral = [gridSide][gridSide]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

type gridPos struct {
	row, col int
	ok       bool
}

// positions is the inverse of spiral, indexed by uppercase ASCII symbol.
var positions = buildPositions()

func buildPositions() [128]gridPos {
	var out [128]gridPos
	for r, row := range spiral {
		for c, sym := range row {
			out[sym] = gridPos{row: r, col: c, ok: true}
		}
	}
	return out
}

// SymbolAt returns the symbol for grid position (row, col).
func SymbolAt(row, col int) (byte, error) {
	if row < 0 || row >= gridSide || col < 0 || col >= gridSide {
		return 0, &DomainError{Param: "grid position", Value: [2]int{row, col}, Want: "in [0, 3]x[0, 3]"}
	}
	return spiral[row][col], nil
}

// PositionOf returns the grid position of a symbol. Lowercase letters are
// accepted.
func PositionOf(sym byte) (row, col int, err error) {
	p, ok := lookup(sym)
	if !ok {
		return 0, 0, &InvalidCodeError{Code: string(sym), Reason: "symbol not in alphabet"}
	}
	return p.row, p.col, nil
}

func lookup(sym byte) (gridPos, bool) {
	if sym >= 'a' && sym <= 'z' {
		sym -= 'a' - 'A'
	}
	if sym >= 128 {
		return gridPos{}, false
	}
	p := positions[sym]
	return p, p.ok
}
