// Package interop translates DIGIPIN cells to and from H3 cells and
// geohashes through cell centres.
package interop

import (
	"fmt"
	"strings"

	"github.com/mmcloughlin/geohash"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

// h3ForLevel pairs each DIGIPIN level with the H3 resolution whose hexagon
// diameter is closest to the cell side.
var h3ForLevel = [digipin.MaxPrecision + 1]int{0, 1, 2, 4, 5, 7, 8, 10, 11, 12, 14}

const maxGeohashChars = 12

// Refs is the set of foreign cell ids for one code.
type Refs struct {
	Code    string `json:"code"`
	H3      string `json:"h3"`
	H3Res   int    `json:"h3_res"`
	Geohash string `json:"geohash"`
}

// DefaultH3Res returns the H3 resolution matching level. Levels outside
// [1, 10] are clamped.
func DefaultH3Res(level int) int {
	level = min(max(level, digipin.MinPrecision), digipin.MaxPrecision)
	return h3ForLevel[level]
}

// ToH3 returns the H3 cell at res containing the centre of code. A negative
// res selects DefaultH3Res.
func ToH3(code string, res int) (string, int, error) {
	cell, err := digipin.DecodeWithBounds(code)
	if err != nil {
		return "", 0, err
	}
	if res < 0 {
		res = DefaultH3Res(len(cell.Code))
	}
	if res > 15 {
		return "", 0, &digipin.DomainError{Param: "h3 resolution", Value: res, Want: "in [0, 15]"}
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: cell.Lat, Lng: cell.Lon}, res)
	if err != nil {
		return "", 0, fmt.Errorf("h3 cell for %s: %w", cell.Code, err)
	}
	return c.String(), res, nil
}

// FromH3 encodes the centre of an H3 cell at precision.
func FromH3(cell string, precision int) (string, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(strings.TrimSpace(cell))); err != nil {
		return "", fmt.Errorf("parse h3 cell: %w", err)
	}
	if !c.IsValid() {
		return "", fmt.Errorf("invalid h3 cell %q", cell)
	}
	ll, err := h3.CellToLatLng(c)
	if err != nil {
		return "", fmt.Errorf("h3 centre of %q: %w", cell, err)
	}
	return digipin.Encode(ll.Lat, ll.Lng, precision)
}

// GeohashChars is the geohash length whose cells are no larger than a
// DIGIPIN cell at level.
func GeohashChars(level int) uint {
	level = min(max(level, digipin.MinPrecision), digipin.MaxPrecision)
	n := (level*4+4)/5 + 1
	return uint(min(n, maxGeohashChars))
}

// ToGeohash returns the geohash of the centre of code.
func ToGeohash(code string) (string, error) {
	cell, err := digipin.DecodeWithBounds(code)
	if err != nil {
		return "", err
	}
	return geohash.EncodeWithPrecision(cell.Lat, cell.Lon, GeohashChars(len(cell.Code))), nil
}

// FromGeohash encodes the centre of hash at precision.
func FromGeohash(hash string, precision int) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if err := geohash.Validate(hash); err != nil {
		return "", fmt.Errorf("invalid geohash %q: %w", hash, err)
	}
	lat, lon := geohash.DecodeCenter(hash)
	return digipin.Encode(lat, lon, precision)
}

// Lookup gathers every foreign id for code. res < 0 selects DefaultH3Res.
func Lookup(code string, res int) (Refs, error) {
	norm, err := digipin.Normalize(code)
	if err != nil {
		return Refs{}, err
	}
	h, r, err := ToH3(norm, res)
	if err != nil {
		return Refs{}, err
	}
	gh, err := ToGeohash(norm)
	if err != nil {
		return Refs{}, err
	}
	return Refs{Code: norm, H3: h, H3Res: r, Geohash: gh}, nil
}
