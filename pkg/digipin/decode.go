package digipin

import (
	"fmt"
	"strings"
)

// Decode returns the centroid of the cell named by code.
func Decode(code string) (Coordinate, error) {
	box, err := Bounds(code)
	if err != nil {
		return Coordinate{}, err
	}
	return box.Center(), nil
}

// Bounds returns the extent of the cell named by code.
func Bounds(code string) (BoundingBox, error) {
	norm, err := Normalize(code)
	if err != nil {
		return BoundingBox{}, err
	}
	return boundsOf(norm), nil
}

// DecodeWithBounds returns the canonical code, its centroid and extent.
func DecodeWithBounds(code string) (Cell, error) {
	norm, err := Normalize(code)
	if err != nil {
		return Cell{}, err
	}
	box := boundsOf(norm)
	c := box.Center()
	return Cell{Code: norm, Lat: c.Lat, Lon: c.Lon, Bounds: box}, nil
}

// boundsOf replays the subdivision for an already normalised code.
func boundsOf(code string) BoundingBox {
	box := IndiaBounds
	for i := 0; i < len(code); i++ {
		p := positions[code[i]]
		box = box.sub(p.row, p.col)
	}
	return box
}

// Normalize upper-cases code and checks that it is 1 to 10 alphabet
// symbols. Whitespace is not trimmed.
func Normalize(code string) (string, error) {
	if code == "" {
		return "", &InvalidCodeError{Code: code, Reason: "empty"}
	}
	if len(code) > MaxPrecision {
		return "", &InvalidCodeError{Code: code, Reason: "longer than 10 symbols"}
	}
	for i := 0; i < len(code); i++ {
		if _, ok := lookup(code[i]); !ok {
			return "", &InvalidCodeError{Code: code, Reason: fmt.Sprintf("symbol %q not in alphabet %s", code[i], Alphabet)}
		}
	}
	return strings.ToUpper(code), nil
}

// IsValid reports whether code is a well-formed code. In strict mode only
// full-resolution codes are accepted.
func IsValid(code string, strict bool) bool {
	norm, err := Normalize(code)
	if err != nil {
		return false
	}
	return !strict || len(norm) == MaxPrecision
}
