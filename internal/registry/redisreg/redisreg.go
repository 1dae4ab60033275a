// Package redisreg is the Redis location store. Records live under
// loc:<id> as JSON and every prefix of a code has a cell:<prefix> set of ids.
package redisreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/digipin/internal/cache/cellindex"
	"github.com/mohammed-shakir/digipin/internal/cache/recordstore"
	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

type Store struct {
	cli     *redisstore.Client
	Records recordstore.RecordStore
	Cells   cellindex.CellIndex
}

var _ registry.Store = (*Store)(nil)

// New wraps cli. A ttl of zero keeps records forever; index entries of an
// expired record are dropped on the next lookup that meets them.
func New(cli *redisstore.Client, ttl time.Duration) *Store {
	return &Store{
		cli:     cli,
		Records: recordstore.NewRedisStore(cli, ttl),
		Cells:   cellindex.NewRedisIndex(cli),
	}
}

func (s *Store) Put(ctx context.Context, loc model.Location) error {
	prev, err := s.Get(ctx, loc.ID)
	switch {
	case err == nil:
		if prev.Code != loc.Code {
			if err := s.Cells.Remove(ctx, prev.Code, loc.ID); err != nil {
				return err
			}
		}
	case !errors.Is(err, registry.ErrNotFound):
		return err
	}

	body, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location %q: %w", loc.ID, err)
	}
	if err := s.Records.Put(ctx, loc.ID, body, 0); err != nil {
		return err
	}
	return s.Cells.Add(ctx, loc.Code, loc.ID)
}

func (s *Store) Get(ctx context.Context, id string) (model.Location, error) {
	raw, ok, err := s.Records.Get(ctx, id)
	if err != nil {
		return model.Location{}, err
	}
	if !ok {
		return model.Location{}, registry.ErrNotFound
	}
	var loc model.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return model.Location{}, fmt.Errorf("decode location %q: %w", id, err)
	}
	return loc, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Records.Delete(ctx, id); err != nil {
		return err
	}
	return s.Cells.Remove(ctx, prev.Code, id)
}

func (s *Store) InCells(ctx context.Context, cells []string) ([]model.Location, error) {
	norm := make([]string, len(cells))
	for i, c := range cells {
		n, err := digipin.Normalize(c)
		if err != nil {
			return nil, err
		}
		norm[i] = n
	}

	ids, err := s.Cells.IDs(ctx, norm)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := s.Records.MGet(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.Location, 0, len(raw))
	for _, id := range ids {
		b, ok := raw[id]
		if !ok {
			s.dropExpired(ctx, id, norm)
			continue
		}
		var loc model.Location
		if err := json.Unmarshal(b, &loc); err != nil {
			return nil, fmt.Errorf("decode location %q: %w", id, err)
		}
		// a record that expired and came back elsewhere leaves its old
		// prefix sets behind
		if !hasAnyPrefix(loc.Code, norm) {
			s.dropExpired(ctx, id, norm)
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

func hasAnyPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// dropExpired removes a dangling or misplaced id from the looked-up cells.
// The old full code is unknown, so deeper sets are cleaned when they are
// read.
func (s *Store) dropExpired(ctx context.Context, id string, cells []string) {
	for _, c := range cells {
		_ = s.Cells.Remove(ctx, c, id)
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.cli.Ping(ctx) }

func (s *Store) Close() error { return s.cli.Close() }
