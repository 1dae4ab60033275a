package digipin

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MaxPolyfillCells bounds the number of grid centres a single Polyfill call
// may scan.
const MaxPolyfillCells = 1 << 20

// Polyfill returns the sorted codes at precision whose cell centres fall
// inside polygon. Polygon points are orb.Point{lon, lat}. Parts of the
// polygon outside IndiaBounds contribute nothing.
func Polyfill(polygon orb.Polygon, precision int) ([]string, error) {
	if err := checkPrecision("precision", precision); err != nil {
		return nil, err
	}
	if len(polygon) == 0 || len(polygon[0]) < 3 {
		return []string{}, nil
	}

	b := polygon.Bound()
	minLat := max(b.Min.Lat(), IndiaBounds.MinLat)
	maxLat := min(b.Max.Lat(), IndiaBounds.MaxLat)
	minLon := max(b.Min.Lon(), IndiaBounds.MinLon)
	maxLon := min(b.Max.Lon(), IndiaBounds.MaxLon)
	if minLat > maxLat || minLon > maxLon {
		return []string{}, nil
	}

	latStep, lonStep := gridSizes[precision][0], gridSizes[precision][1]
	// scan centres of the grid cells overlapping the clipped bound
	i0 := int(math.Floor((minLat - IndiaBounds.MinLat) / latStep))
	i1 := int(math.Floor((maxLat - IndiaBounds.MinLat) / latStep))
	j0 := int(math.Floor((minLon - IndiaBounds.MinLon) / lonStep))
	j1 := int(math.Floor((maxLon - IndiaBounds.MinLon) / lonStep))
	if n := (i1 - i0 + 1) * (j1 - j0 + 1); n > MaxPolyfillCells {
		return nil, &DomainError{Param: "polyfill area", Value: n, Want: "at most 1048576 cells at this precision"}
	}

	set := make(map[string]struct{})
	for i := i0; i <= i1; i++ {
		lat := IndiaBounds.MinLat + (float64(i)+0.5)*latStep
		for j := j0; j <= j1; j++ {
			lon := IndiaBounds.MinLon + (float64(j)+0.5)*lonStep
			if !planar.PolygonContains(polygon, orb.Point{lon, lat}) {
				continue
			}
			code, err := Encode(lat, lon, precision)
			if err != nil {
				continue
			}
			set[code] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

// PolygonBoundary returns the smallest box covering every code. An empty
// list yields the zero box.
func PolygonBoundary(codes []string) (BoundingBox, error) {
	if len(codes) == 0 {
		return BoundingBox{}, nil
	}
	out, err := Bounds(codes[0])
	if err != nil {
		return BoundingBox{}, err
	}
	for _, c := range codes[1:] {
		b, err := Bounds(c)
		if err != nil {
			return BoundingBox{}, err
		}
		out = out.Union(b)
	}
	return out, nil
}

// gridEps absorbs rounding when a box edge sits on a grid line.
const gridEps = 1e-9

// Cover returns the sorted codes at precision of every cell overlapping box.
// Cells that only touch box along an edge are left out.
func Cover(box BoundingBox, precision int) ([]string, error) {
	if err := checkPrecision("precision", precision); err != nil {
		return nil, err
	}
	minLat := max(box.MinLat, IndiaBounds.MinLat)
	maxLat := min(box.MaxLat, IndiaBounds.MaxLat)
	minLon := max(box.MinLon, IndiaBounds.MinLon)
	maxLon := min(box.MaxLon, IndiaBounds.MaxLon)
	if minLat > maxLat || minLon > maxLon {
		return []string{}, nil
	}

	latStep, lonStep := gridSizes[precision][0], gridSizes[precision][1]
	last := 1<<(2*precision) - 1
	i0, i1 := span(minLat-IndiaBounds.MinLat, maxLat-IndiaBounds.MinLat, latStep, last)
	j0, j1 := span(minLon-IndiaBounds.MinLon, maxLon-IndiaBounds.MinLon, lonStep, last)
	if n := (i1 - i0 + 1) * (j1 - j0 + 1); n > MaxPolyfillCells {
		return nil, &DomainError{Param: "cover area", Value: n, Want: "at most 1048576 cells at this precision"}
	}

	out := make([]string, 0, (i1-i0+1)*(j1-j0+1))
	for i := i0; i <= i1; i++ {
		lat := IndiaBounds.MinLat + (float64(i)+0.5)*latStep
		for j := j0; j <= j1; j++ {
			lon := IndiaBounds.MinLon + (float64(j)+0.5)*lonStep
			code, err := Encode(lat, lon, precision)
			if err != nil {
				return nil, err
			}
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out, nil
}

// span returns the first and last grid index overlapping [lo, hi].
func span(lo, hi, step float64, last int) (int, int) {
	a := int(math.Floor(lo/step + gridEps))
	b := int(math.Ceil(hi/step-gridEps)) - 1
	if b < a {
		b = a
	}
	return min(max(a, 0), last), min(max(b, 0), last)
}
