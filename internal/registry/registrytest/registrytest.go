// Package registrytest holds the behaviour every registry.Store must share.
package registrytest

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/registry"
)

// Fixture locations and their level 10 codes.
var (
	DakBhawan = model.Location{ID: "dak", Name: "Dak Bhawan", Code: "39J49LL8T4", Lat: 28.622788, Lon: 77.213033, Version: 1}
	NorthGate = model.Location{ID: "north", Name: "North gate", Code: "39J49LL86M", Lat: 28.622888, Lon: 77.213033, Version: 1}
	Connaught = model.Location{ID: "cp", Name: "Connaught Place", Code: "39J49KP2C8", Lat: 28.6315, Lon: 77.2167, Version: 1}
	Bengaluru = model.Location{ID: "blr", Name: "Bengaluru", Code: "4P3JK852C9", Lat: 12.9716, Lon: 77.5946, Version: 1}
	NECorner  = model.Location{ID: "corner", Code: "8888888888", Lat: 38.5, Lon: 99.5, Version: 1}
)

func All() []model.Location {
	return []model.Location{DakBhawan, NorthGate, Connaught, Bengaluru, NECorner}
}

func ids(locs []model.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.ID
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) registry.Store) {
	t.Run("PutGetDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		want := DakBhawan
		want.Attrs = model.Attrs{"kind": "post office"}
		want.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := s.Put(ctx, want); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get(ctx, "dak")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Code != want.Code || got.Name != want.Name || got.Attrs["kind"] != "post office" || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Fatalf("Get=%+v want %+v", got, want)
		}

		if err := s.Delete(ctx, "dak"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "dak"); !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("Get after delete err=%v", err)
		}
		if err := s.Delete(ctx, "dak"); !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("second Delete err=%v", err)
		}
		locs, err := s.InCells(ctx, []string{"39J"})
		if err != nil || len(locs) != 0 {
			t.Fatalf("deleted location still indexed: %v %v", locs, err)
		}
	})

	t.Run("InCellsByPrefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, l := range All() {
			if err := s.Put(ctx, l); err != nil {
				t.Fatalf("Put %s: %v", l.ID, err)
			}
		}

		cases := []struct {
			cells []string
			want  []string
		}{
			{[]string{"39J49"}, []string{"cp", "dak", "north"}},
			{[]string{"39j49ll8"}, []string{"dak", "north"}},
			{[]string{"39J49LL8T4"}, []string{"dak"}},
			{[]string{"39J49LL8T4", "4P"}, []string{"blr", "dak"}},
			{[]string{"39J49", "39J49LL8"}, []string{"cp", "dak", "north"}},
			{[]string{"8888888888"}, []string{"corner"}},
			{[]string{"2"}, []string{}},
		}
		for _, tc := range cases {
			got, err := s.InCells(ctx, tc.cells)
			if err != nil {
				t.Fatalf("InCells(%v): %v", tc.cells, err)
			}
			if g := ids(got); !equal(g, tc.want) {
				t.Fatalf("InCells(%v)=%v want %v", tc.cells, g, tc.want)
			}
		}
		if _, err := s.InCells(ctx, []string{"ZZ"}); err == nil {
			t.Fatalf("expected error for invalid cell")
		}
	})

	t.Run("PutMovesIndex", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, DakBhawan); err != nil {
			t.Fatalf("Put: %v", err)
		}
		moved := Bengaluru
		moved.ID = DakBhawan.ID
		moved.Version = 2
		if err := s.Put(ctx, moved); err != nil {
			t.Fatalf("Put moved: %v", err)
		}
		if got, _ := s.InCells(ctx, []string{"39J"}); len(got) != 0 {
			t.Fatalf("old cell still lists moved location: %v", ids(got))
		}
		got, err := s.InCells(ctx, []string{"4P3"})
		if err != nil || len(got) != 1 || got[0].Version != 2 {
			t.Fatalf("new cell=%v err=%v", got, err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}
