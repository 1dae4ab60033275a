package digipinmapper

import (
	"fmt"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

// MaxChildDepth caps how many levels ToChildren may descend in one call.
const MaxChildDepth = 2

func (m *Mapper) ToParent(code string, level int) (string, error) {
	return digipin.Parent(code, level)
}

// ToChildren returns the sorted descendants of code at childLevel.
func (m *Mapper) ToChildren(code string, childLevel int) (model.Cells, error) {
	norm, err := digipin.Normalize(code)
	if err != nil {
		return nil, err
	}
	cur := len(norm)
	if childLevel < cur || childLevel > digipin.MaxPrecision {
		return nil, &digipin.DomainError{
			Param: "child level",
			Value: childLevel,
			Want:  fmt.Sprintf("in [%d, %d]", cur, digipin.MaxPrecision),
		}
	}
	if childLevel-cur > MaxChildDepth {
		return nil, &digipin.DomainError{
			Param: "child depth",
			Value: childLevel - cur,
			Want:  fmt.Sprintf("at most %d", MaxChildDepth),
		}
	}

	out := model.Cells{norm}
	for range childLevel - cur {
		next := make(model.Cells, 0, len(out)*16)
		for _, c := range out {
			kids, err := digipin.Children(c)
			if err != nil {
				return nil, err
			}
			next = append(next, kids...)
		}
		out = next
	}
	// the alphabet is in byte order, so expanding parents in order keeps
	// the result sorted
	return out, nil
}
