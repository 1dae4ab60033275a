// Package mapper converts geometries into DIGIPIN cells and walks the cell
// hierarchy.
package mapper

import (
	"github.com/mohammed-shakir/digipin/internal/core/model"
)

type Interface interface {
	CellsForBBox(bb model.BBox, precision int) (model.Cells, error)
	CellsForPolygon(poly model.Polygon, precision int) (model.Cells, error)
	ToParent(code string, level int) (string, error)
	ToChildren(code string, childLevel int) (model.Cells, error)
}
