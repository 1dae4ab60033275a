// Package cellindex maps DIGIPIN cells to the ids of locations inside them.
// Every location is indexed under all prefixes of its code, so a lookup at
// any level is a single set read.
package cellindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/mohammed-shakir/digipin/internal/cache/keys"
	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
)

type CellIndex interface {
	Add(ctx context.Context, code, id string) error

	Remove(ctx context.Context, code, id string) error

	// IDs returns the sorted, de-duplicated ids indexed under any of cells.
	IDs(ctx context.Context, cells []string) ([]string, error)
}

type redisCellIndex struct {
	cli *redisstore.Client
}

func NewRedisIndex(cli *redisstore.Client) CellIndex {
	return &redisCellIndex{cli: cli}
}

func (ci *redisCellIndex) Add(ctx context.Context, code, id string) error {
	if err := ci.cli.SAddEach(ctx, keys.CellKeys(code), id); err != nil {
		return fmt.Errorf("cellindex add %q under %q: %w", id, code, err)
	}
	return nil
}

func (ci *redisCellIndex) Remove(ctx context.Context, code, id string) error {
	if err := ci.cli.SRemEach(ctx, keys.CellKeys(code), id); err != nil {
		return fmt.Errorf("cellindex remove %q under %q: %w", id, code, err)
	}
	return nil
}

func (ci *redisCellIndex) IDs(ctx context.Context, cells []string) ([]string, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	ks := make([]string, len(cells))
	for i, c := range cells {
		ks[i] = keys.CellKey(c)
	}
	ids, err := ci.cli.SUnion(ctx, ks...)
	if err != nil {
		return nil, fmt.Errorf("cellindex lookup %d cells: %w", len(cells), err)
	}
	sort.Strings(ids)
	return ids, nil
}
