// Package recordstore keeps serialised location records in Redis.
package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/digipin/internal/cache/keys"
	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
)

type RecordStore interface {
	Get(ctx context.Context, id string) ([]byte, bool, error)

	MGet(ctx context.Context, ids []string) (map[string][]byte, error)

	Put(ctx context.Context, id string, body []byte, ttl time.Duration) error

	Delete(ctx context.Context, id string) error
}

type redisRecordStore struct {
	cli        *redisstore.Client
	defaultTTL time.Duration
}

func NewRedisStore(cli *redisstore.Client, defaultTTL time.Duration) RecordStore {
	return &redisRecordStore{
		cli:        cli,
		defaultTTL: defaultTTL,
	}
}

func (s *redisRecordStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	b, ok, err := s.cli.Get(ctx, keys.LocationKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("recordstore get %q: %w", id, err)
	}
	return b, ok, nil
}

// MGet returns the records found, keyed by id.
func (s *redisRecordStore) MGet(ctx context.Context, ids []string) (map[string][]byte, error) {
	if len(ids) == 0 {
		return map[string][]byte{}, nil
	}

	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.LocationKey(id)
	}

	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("recordstore MGET %d keys: %w", len(ks), err)
	}

	out := make(map[string][]byte, len(raw))
	for i, id := range ids {
		if v, ok := raw[ks[i]]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// Put writes body under id. A ttl of zero falls back to the store default,
// and a zero default keeps the record forever.
func (s *redisRecordStore) Put(ctx context.Context, id string, body []byte, ttl time.Duration) error {
	t := ttl
	if t <= 0 {
		t = s.defaultTTL
	}
	k := keys.LocationKey(id)
	if err := s.cli.Set(ctx, k, body, t); err != nil {
		return fmt.Errorf("recordstore SET %q: %w", k, err)
	}
	return nil
}

func (s *redisRecordStore) Delete(ctx context.Context, id string) error {
	k := keys.LocationKey(id)
	if err := s.cli.Del(ctx, k); err != nil {
		return fmt.Errorf("recordstore DEL %q: %w", k, err)
	}
	return nil
}
