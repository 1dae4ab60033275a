package digipin

import (
	"sort"
	"strings"
)

// Direction selects which neighbours Neighbors returns.
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionCardinal Direction = "cardinal"

	North     Direction = "north"
	NorthEast Direction = "northeast"
	East      Direction = "east"
	SouthEast Direction = "southeast"
	South     Direction = "south"
	SouthWest Direction = "southwest"
	West      Direction = "west"
	NorthWest Direction = "northwest"
)

// unit steps in (lat, lon) grid cells
var compass = map[Direction][2]int{
	North:     {1, 0},
	NorthEast: {1, 1},
	East:      {0, 1},
	SouthEast: {-1, 1},
	South:     {-1, 0},
	SouthWest: {-1, -1},
	West:      {0, -1},
	NorthWest: {1, -1},
}

var (
	allDirections      = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}
	cardinalDirections = []Direction{North, East, South, West}
)

// ParseDirection maps a case-insensitive name to a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if _, err := d.expand(); err != nil {
		return "", err
	}
	return d, nil
}

func (d Direction) expand() ([]Direction, error) {
	switch d {
	case DirectionAll:
		return allDirections, nil
	case DirectionCardinal:
		return cardinalDirections, nil
	}
	if _, ok := compass[d]; ok {
		return []Direction{d}, nil
	}
	return nil, &DomainError{
		Param: "direction",
		Value: string(d),
		Want:  "all, cardinal, north, northeast, east, southeast, south, southwest, west or northwest",
	}
}

// Neighbors returns the codes adjacent to code at the same precision, in
// compass order starting from north. Offsets that leave IndiaBounds are
// omitted, so cells on the border have fewer neighbours.
func Neighbors(code string, dir Direction) ([]string, error) {
	norm, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	dir, err = ParseDirection(string(dir))
	if err != nil {
		return nil, err
	}
	dirs, _ := dir.expand()
	g := newGridWalker(norm)
	out := make([]string, 0, len(dirs))
	seen := map[string]struct{}{norm: {}}
	for _, d := range dirs {
		step := compass[d]
		n, ok := g.at(step[0], step[1])
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// Disk returns every code within Chebyshev distance radius of code,
// including code itself, sorted.
func Disk(code string, radius int) ([]string, error) {
	if radius < 0 {
		return nil, &DomainError{Param: "radius", Value: radius, Want: ">= 0"}
	}
	norm, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	g := newGridWalker(norm)
	set := map[string]struct{}{norm: {}}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			g.collect(set, dy, dx)
		}
	}
	return sortedKeys(set), nil
}

// Ring returns the codes at Chebyshev distance exactly radius from code,
// sorted. The centre is never included.
func Ring(code string, radius int) ([]string, error) {
	if radius < 1 {
		return nil, &DomainError{Param: "radius", Value: radius, Want: ">= 1"}
	}
	norm, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	g := newGridWalker(norm)
	set := make(map[string]struct{}, 8*radius)
	for dx := -radius; dx <= radius; dx++ {
		g.collect(set, radius, dx)
		g.collect(set, -radius, dx)
	}
	for dy := -radius + 1; dy < radius; dy++ {
		g.collect(set, dy, radius)
		g.collect(set, dy, -radius)
	}
	delete(set, norm)
	return sortedKeys(set), nil
}

// SurroundingCells is Neighbors(code, DirectionAll).
func SurroundingCells(code string) ([]string, error) {
	return Neighbors(code, DirectionAll)
}

// ExpandSearchArea is Disk(code, radius).
func ExpandSearchArea(code string, radius int) ([]string, error) {
	return Disk(code, radius)
}

// gridWalker re-encodes centroid offsets measured in whole cells.
type gridWalker struct {
	center           Coordinate
	latStep, lonStep float64
	precision        int
}

func newGridWalker(norm string) gridWalker {
	size := gridSizes[len(norm)]
	return gridWalker{
		center:    boundsOf(norm).Center(),
		latStep:   size[0],
		lonStep:   size[1],
		precision: len(norm),
	}
}

func (g gridWalker) at(dy, dx int) (string, bool) {
	lat := g.center.Lat + float64(dy)*g.latStep
	lon := g.center.Lon + float64(dx)*g.lonStep
	code, err := Encode(lat, lon, g.precision)
	if err != nil {
		return "", false
	}
	return code, true
}

func (g gridWalker) collect(set map[string]struct{}, dy, dx int) {
	if code, ok := g.at(dy, dx); ok {
		set[code] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
