package digipinmapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/mapper"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellsForBBox returns every cell at precision overlapping bb.
func (m *Mapper) CellsForBBox(bb model.BBox, precision int) (model.Cells, error) {
	if bb.X2 < bb.X1 || bb.Y2 < bb.Y1 {
		return nil, fmt.Errorf("bbox %s: max must not be below min", bb)
	}
	codes, err := digipin.Cover(digipin.BoundingBox{
		MinLat: bb.Y1, MaxLat: bb.Y2,
		MinLon: bb.X1, MaxLon: bb.X2,
	}, precision)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// CellsForPolygon accepts a GeoJSON Polygon, MultiPolygon, or a Feature
// wrapping one, and returns the cells whose centres fall inside it.
func (m *Mapper) CellsForPolygon(poly model.Polygon, precision int) (model.Cells, error) {
	g, err := parseGeometry([]byte(poly.GeoJSON))
	if err != nil {
		return nil, err
	}

	switch v := g.(type) {
	case orb.Polygon:
		if err := checkPolygon(v, -1); err != nil {
			return nil, err
		}
		return polyfillOne(v, precision)

	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, errors.New("empty multipolygon")
		}
		seen := make(map[string]struct{})
		var out []string
		for pi, p := range v {
			if err := checkPolygon(p, pi); err != nil {
				return nil, err
			}
			cells, err := polyfillOne(p, precision)
			if err != nil {
				return nil, err
			}
			for _, c := range cells {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					out = append(out, c)
				}
			}
		}
		sort.Strings(out)
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported GeoJSON type: %s", g.GeoJSONType())
	}
}

// --- helpers ---

func parseGeometry(raw []byte) (orb.Geometry, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if hdr.Type == "Feature" {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("parse geojson feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, errors.New("feature has no geometry")
		}
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("parse geojson geometry: %w", err)
	}
	return g.Geometry(), nil
}

// checkPolygon rejects rings with fewer than 4 positions. idx < 0 marks a
// stand-alone polygon.
func checkPolygon(p orb.Polygon, idx int) error {
	where := "polygon"
	if idx >= 0 {
		where = fmt.Sprintf("polygon %d", idx)
	}
	if len(p) == 0 {
		return fmt.Errorf("%s is empty", where)
	}
	if len(p[0]) < 4 {
		return fmt.Errorf("%s outer ring has < 4 vertices", where)
	}
	for i := 1; i < len(p); i++ {
		if len(p[i]) < 4 {
			return fmt.Errorf("%s hole %d has < 4 vertices", where, i-1)
		}
	}
	return nil
}

func polyfillOne(p orb.Polygon, precision int) (model.Cells, error) {
	codes, err := digipin.Polyfill(p, precision)
	if err != nil {
		return nil, err
	}
	return codes, nil
}
