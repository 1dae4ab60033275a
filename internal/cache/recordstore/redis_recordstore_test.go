package recordstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
)

func TestRedisRecordStore_PutGetDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cli, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	defer func() { _ = cli.Close() }()

	s := NewRedisStore(cli, 10*time.Minute)
	ctx := context.Background()

	if err := s.Put(ctx, "a", []byte(`{"id":"a"}`), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "b", []byte(`{"id":"b"}`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL("loc:a"); ttl != 10*time.Minute {
		t.Fatalf("default ttl=%v want 10m", ttl)
	}
	if ttl := mr.TTL("loc:b"); ttl != time.Minute {
		t.Fatalf("explicit ttl=%v want 1m", ttl)
	}

	got, err := s.MGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != `{"id":"a"}` {
		t.Fatalf("MGet=%v", got)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, "a"); err != nil || ok {
		t.Fatalf("Get after delete: ok=%v err=%v", ok, err)
	}
}
