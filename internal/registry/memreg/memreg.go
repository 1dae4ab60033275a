// Package memreg is the in-process location store, backed by an R-tree
// over location points.
package memreg

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/core/observability"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

const backend = "memory"

// R-tree requires non-zero extents, points become boxes of this side
// centred on the point.
const pointEpsilon = 1e-9

type entry struct {
	loc model.Location
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	const h = pointEpsilon / 2
	r, _ := rtreego.NewRect(rtreego.Point{e.loc.Lon - h, e.loc.Lat - h}, []float64{pointEpsilon, pointEpsilon})
	return r
}

type Store struct {
	mu    sync.RWMutex
	byID  map[string]*entry
	rtree *rtreego.Rtree
}

var _ registry.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:  make(map[string]*entry),
		rtree: rtreego.NewTree(2, 25, 50),
	}
}

func observe(op string, err error, start time.Time) {
	observability.ObserveStoreOp(backend, op, err, time.Since(start).Seconds())
}

func (s *Store) Put(ctx context.Context, loc model.Location) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observe("put", err, start)
		return err
	}
	s.mu.Lock()
	if old, ok := s.byID[loc.ID]; ok {
		s.rtree.Delete(old)
	}
	e := &entry{loc: loc}
	s.byID[loc.ID] = e
	s.rtree.Insert(e)
	s.mu.Unlock()
	observe("put", nil, start)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (model.Location, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observe("get", err, start)
		return model.Location{}, err
	}
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	observe("get", nil, start)
	if !ok {
		return model.Location{}, registry.ErrNotFound
	}
	return e.loc, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observe("delete", err, start)
		return err
	}
	s.mu.Lock()
	e, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		s.rtree.Delete(e)
	}
	s.mu.Unlock()
	observe("delete", nil, start)
	if !ok {
		return registry.ErrNotFound
	}
	return nil
}

// InCells searches the R-tree with each cell's box, then keeps the points
// whose code carries the cell prefix so shared edges are not double counted.
func (s *Store) InCells(ctx context.Context, cells []string) ([]model.Location, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observe("in_cells", err, start)
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []model.Location
	for _, c := range cells {
		norm, err := digipin.Normalize(c)
		if err != nil {
			observe("in_cells", err, start)
			return nil, err
		}
		b, _ := digipin.Bounds(norm)
		rect, err := rtreego.NewRect(
			rtreego.Point{b.MinLon, b.MinLat},
			[]float64{b.MaxLon - b.MinLon, b.MaxLat - b.MinLat},
		)
		if err != nil {
			observe("in_cells", err, start)
			return nil, err
		}
		for _, sp := range s.rtree.SearchIntersect(rect) {
			e := sp.(*entry)
			if !strings.HasPrefix(e.loc.Code, norm) {
				continue
			}
			if _, dup := seen[e.loc.ID]; dup {
				continue
			}
			seen[e.loc.ID] = struct{}{}
			out = append(out, e.loc)
		}
	}
	observe("in_cells", nil, start)
	return out, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
