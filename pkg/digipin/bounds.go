package digipin

import "fmt"

// BoundingBox is a rectangular lat/lon extent in degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IndiaBounds is the root extent every code subdivides.
var IndiaBounds = BoundingBox{MinLat: 2.5, MaxLat: 38.5, MinLon: 63.5, MaxLon: 99.5}

const (
	// MaxPrecision is the length of a full-resolution code.
	MaxPrecision = 10
	// MinPrecision is the length of the coarsest code.
	MinPrecision = 1

	gridSide = 4
)

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.6f,%.6f]x[%.6f,%.6f]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Contains reports whether the point lies in the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Union returns the smallest box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		MinLat: min(b.MinLat, o.MinLat),
		MaxLat: max(b.MaxLat, o.MaxLat),
		MinLon: min(b.MinLon, o.MinLon),
		MaxLon: max(b.MaxLon, o.MaxLon),
	}
}

func (b BoundingBox) steps() (latStep, lonStep float64) {
	return (b.MaxLat - b.MinLat) / gridSide, (b.MaxLon - b.MinLon) / gridSide
}

// sub returns the cell at grid position (row, col). Row 0 is the northern
// band, col 0 the western band. Offsets are taken from the minimum corner
// so encode and decode replay the same arithmetic.
func (b BoundingBox) sub(row, col int) BoundingBox {
	latStep, lonStep := b.steps()
	band := gridSide - 1 - row
	minLat := b.MinLat + float64(band)*latStep
	minLon := b.MinLon + float64(col)*lonStep
	return BoundingBox{
		MinLat: minLat,
		MaxLat: minLat + latStep,
		MinLon: minLon,
		MaxLon: minLon + lonStep,
	}
}

// locate returns the grid position holding (lat, lon). Points on the
// northern or eastern edge fall into the last band instead of overflowing.
func (b BoundingBox) locate(lat, lon float64) (row, col int) {
	latStep, lonStep := b.steps()
	band := min(gridSide-1, int((lat-b.MinLat)/latStep))
	col = min(gridSide-1, int((lon-b.MinLon)/lonStep))
	return gridSide - 1 - band, col
}
