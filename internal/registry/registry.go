// Package registry stores named locations against their DIGIPIN codes and
// answers neighbourhood and region queries over them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

var (
	ErrNotFound  = errors.New("registry: location not found")
	ErrStale     = errors.New("registry: stale version")
	ErrInvalidID = errors.New("registry: invalid location id")
)

// Store persists locations and indexes them by every prefix of their code.
// Put replaces any previous record with the same id, including its index
// entries.
type Store interface {
	Put(ctx context.Context, loc model.Location) error
	Get(ctx context.Context, id string) (model.Location, error)
	Delete(ctx context.Context, id string) error
	// InCells returns the locations whose code starts with any of cells.
	InCells(ctx context.Context, cells []string) ([]model.Location, error)
	Ping(ctx context.Context) error
	Close() error
}

// Hit is a location returned by a proximity query.
type Hit struct {
	model.Location
	DistanceM float64 `json:"distance_m"`
}

type Options struct {
	// Precision is the level codes are stored at.
	Precision int
	// SearchPrecision is the level Nearby walks its disk at.
	SearchPrecision int
	OpTimeout       time.Duration
	Now             func() time.Time
}

type Service struct {
	store Store
	opts  Options
	mu    sync.Mutex
}

func NewService(store Store, opts Options) *Service {
	if opts.Precision == 0 {
		opts.Precision = digipin.MaxPrecision
	}
	if opts.SearchPrecision == 0 {
		opts.SearchPrecision = 8
	}
	// stored codes must be at least as long as the cells Nearby searches
	opts.SearchPrecision = min(opts.SearchPrecision, opts.Precision)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, opts: opts}
}

func (s *Service) Store() Store { return s.store }

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OpTimeout)
}

// Upsert stores the location under id. A zero in.Version takes the next
// version; an explicit version must be greater than the stored one.
func (s *Service) Upsert(ctx context.Context, id string, in model.LocationInput) (model.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Location{}, ErrInvalidID
	}
	code, err := digipin.Encode(in.Lat, in.Lon, s.opts.Precision)
	if err != nil {
		return model.Location{}, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.store.Get(ctx, id)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.Location{}, err
	}

	version := in.Version
	switch {
	case version == 0:
		version = prev.Version + 1
	case found && version <= prev.Version:
		return model.Location{}, fmt.Errorf("%w: %s has version %d, got %d", ErrStale, id, prev.Version, version)
	}

	loc := model.Location{
		ID:        id,
		Name:      in.Name,
		Code:      code,
		Lat:       in.Lat,
		Lon:       in.Lon,
		Attrs:     in.Attrs,
		Version:   version,
		UpdatedAt: s.opts.Now().UTC(),
	}
	if err := s.store.Put(ctx, loc); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Location, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, strings.TrimSpace(id))
}

// DeleteVersion removes id only when the stored version is older than
// version, so a replayed or reordered delete cannot remove a newer write.
func (s *Service) DeleteVersion(ctx context.Context, id string, version int64) error {
	id = strings.TrimSpace(id)
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if prev.Version >= version {
		return fmt.Errorf("%w: %s has version %d, delete carries %d", ErrStale, id, prev.Version, version)
	}
	return s.store.Delete(ctx, id)
}

// Nearby returns locations in the disk of the given radius around the
// search-level cell containing (lat, lon), nearest first. limit <= 0 means
// no limit.
func (s *Service) Nearby(ctx context.Context, lat, lon float64, radius, limit int) ([]Hit, error) {
	return s.NearbyAt(ctx, lat, lon, s.opts.SearchPrecision, radius, limit)
}

// NearbyAt is Nearby searching with cells of the given precision, which
// must not exceed the precision locations are stored at.
func (s *Service) NearbyAt(ctx context.Context, lat, lon float64, precision, radius, limit int) ([]Hit, error) {
	if precision < digipin.MinPrecision || precision > s.opts.Precision {
		return nil, &digipin.DomainError{Param: "search precision", Value: precision, Want: fmt.Sprintf("in [1, %d]", s.opts.Precision)}
	}
	center, err := digipin.Encode(lat, lon, precision)
	if err != nil {
		return nil, err
	}
	cells, err := digipin.Disk(center, radius)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	locs, err := s.store.InCells(ctx, cells)
	if err != nil {
		return nil, err
	}

	origin := orb.Point{lon, lat}
	hits := make([]Hit, len(locs))
	for i, l := range locs {
		d := geo.DistanceHaversine(origin, orb.Point{l.Lon, l.Lat})
		hits[i] = Hit{Location: l, DistanceM: math.Round(d*100) / 100}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceM != hits[j].DistanceM {
			return hits[i].DistanceM < hits[j].DistanceM
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Region returns the locations whose code starts with prefix, by id.
func (s *Service) Region(ctx context.Context, prefix string, limit int) ([]model.Location, error) {
	norm, err := digipin.Normalize(prefix)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	locs, err := s.store.InCells(ctx, []string{norm})
	if err != nil {
		return nil, err
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].ID < locs[j].ID })
	if limit > 0 && len(locs) > limit {
		locs = locs[:limit]
	}
	return locs, nil
}
