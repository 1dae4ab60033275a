package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/internal/registry/memreg"
	"github.com/mohammed-shakir/digipin/internal/registry/registrytest"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *registry.Service {
	t.Helper()
	svc := registry.NewService(memreg.New(), registry.Options{
		OpTimeout: time.Second,
		Now:       func() time.Time { return fixedNow },
	})
	ctx := context.Background()
	for _, l := range registrytest.All() {
		if _, err := svc.Upsert(ctx, l.ID, model.LocationInput{Name: l.Name, Lat: l.Lat, Lon: l.Lon}); err != nil {
			t.Fatalf("Upsert %s: %v", l.ID, err)
		}
	}
	return svc
}

func TestUpsert_EncodesAndVersions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	got, err := svc.Get(ctx, "dak")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Code != registrytest.DakBhawan.Code || got.Version != 1 || !got.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("stored=%+v", got)
	}

	again, err := svc.Upsert(ctx, "dak", model.LocationInput{Lat: got.Lat, Lon: got.Lon})
	if err != nil || again.Version != 2 {
		t.Fatalf("auto version=%d err=%v", again.Version, err)
	}

	if _, err := svc.Upsert(ctx, "dak", model.LocationInput{Lat: got.Lat, Lon: got.Lon, Version: 2}); !errors.Is(err, registry.ErrStale) {
		t.Fatalf("replayed version err=%v want ErrStale", err)
	}
	if v, err := svc.Upsert(ctx, "dak", model.LocationInput{Lat: got.Lat, Lon: got.Lon, Version: 7}); err != nil || v.Version != 7 {
		t.Fatalf("explicit version=%d err=%v", v.Version, err)
	}
}

func TestUpsert_Rejects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, "  ", model.LocationInput{Lat: 28, Lon: 77}); !errors.Is(err, registry.ErrInvalidID) {
		t.Fatalf("blank id err=%v", err)
	}
	if _, err := svc.Upsert(ctx, "paris", model.LocationInput{Lat: 48.85, Lon: 2.35}); !errors.Is(err, digipin.ErrOutOfRange) {
		t.Fatalf("outside grid err=%v", err)
	}
	if _, err := svc.Get(ctx, "paris"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("rejected upsert must not store, err=%v", err)
	}
}

func TestNearby_SortedByDistance(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	lat, lon := registrytest.DakBhawan.Lat, registrytest.DakBhawan.Lon

	hits, err := svc.Nearby(ctx, lat, lon, 1, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "dak" || hits[1].ID != "north" {
		t.Fatalf("radius 1 hits=%+v", hits)
	}
	if hits[0].DistanceM != 0 || hits[1].DistanceM < 10 || hits[1].DistanceM > 12.5 {
		t.Fatalf("distances=%v,%v", hits[0].DistanceM, hits[1].DistanceM)
	}

	wide, err := svc.Nearby(ctx, lat, lon, 25, 0)
	if err != nil {
		t.Fatalf("Nearby wide: %v", err)
	}
	if len(wide) != 3 || wide[2].ID != "cp" {
		t.Fatalf("radius 25 hits=%+v", wide)
	}

	limited, err := svc.Nearby(ctx, lat, lon, 25, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "dak" {
		t.Fatalf("limit 1 hits=%+v err=%v", limited, err)
	}

	if _, err := svc.Nearby(ctx, lat, lon, -1, 0); !errors.Is(err, digipin.ErrDomain) {
		t.Fatalf("negative radius err=%v", err)
	}
	if _, err := svc.Nearby(ctx, 0, 0, 1, 0); !errors.Is(err, digipin.ErrOutOfRange) {
		t.Fatalf("outside grid err=%v", err)
	}
}

func TestNearbyAt_CoarserCells(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	lat, lon := registrytest.DakBhawan.Lat, registrytest.DakBhawan.Lon

	// 39J49L and 39J49K share an edge, so one ring reaches Connaught Place
	hits, err := svc.NearbyAt(ctx, lat, lon, 6, 1, 0)
	if err != nil {
		t.Fatalf("NearbyAt: %v", err)
	}
	if len(hits) != 3 || hits[2].ID != "cp" {
		t.Fatalf("p6 hits=%+v", hits)
	}

	for _, p := range []int{0, 11} {
		if _, err := svc.NearbyAt(ctx, lat, lon, p, 1, 0); !errors.Is(err, digipin.ErrDomain) {
			t.Fatalf("precision %d err=%v", p, err)
		}
	}
}

func TestRegion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	locs, err := svc.Region(ctx, "39j49", 0)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if len(locs) != 3 || locs[0].ID != "cp" || locs[1].ID != "dak" || locs[2].ID != "north" {
		t.Fatalf("region=%+v", locs)
	}
	if locs, _ := svc.Region(ctx, "39J49", 2); len(locs) != 2 {
		t.Fatalf("limit ignored: %d", len(locs))
	}
	if _, err := svc.Region(ctx, "ZZ", 0); !errors.Is(err, digipin.ErrInvalidCode) {
		t.Fatalf("bad prefix err=%v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if err := svc.Delete(ctx, "dak"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "dak"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
	hits, err := svc.Nearby(ctx, registrytest.DakBhawan.Lat, registrytest.DakBhawan.Lon, 1, 0)
	if err != nil || len(hits) != 1 || hits[0].ID != "north" {
		t.Fatalf("hits after delete=%+v err=%v", hits, err)
	}
}

func TestDeleteVersion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Upsert(ctx, "dak", model.LocationInput{Lat: registrytest.DakBhawan.Lat, Lon: registrytest.DakBhawan.Lon, Version: 5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	for _, v := range []int64{2, 5} {
		if err := svc.DeleteVersion(ctx, "dak", v); !errors.Is(err, registry.ErrStale) {
			t.Fatalf("delete v%d err=%v, want ErrStale", v, err)
		}
	}
	if loc, err := svc.Get(ctx, "dak"); err != nil || loc.Version != 5 {
		t.Fatalf("after stale deletes loc=%+v err=%v", loc, err)
	}

	if err := svc.DeleteVersion(ctx, "dak", 6); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if err := svc.DeleteVersion(ctx, "dak", 7); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
}
