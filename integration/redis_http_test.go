package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/digipin/internal/cache/querycache"
	"github.com/mohammed-shakir/digipin/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin/internal/core/config"
	"github.com/mohammed-shakir/digipin/internal/core/health"
	"github.com/mohammed-shakir/digipin/internal/core/router"
	"github.com/mohammed-shakir/digipin/internal/core/server"
	digipinmapper "github.com/mohammed-shakir/digipin/internal/mapper/digipin"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/internal/registry/redisreg"
)

func newRedisServer(t *testing.T) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cli, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	store := redisreg.New(cli, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{DefaultPrecision: 10, SearchPrecision: 8, MaxRadius: 25, MaxBatch: 100}
	svc := registry.NewService(store, registry.Options{SearchPrecision: cfg.SearchPrecision})
	api := router.New(logger, cfg, digipinmapper.New(), svc, querycache.New(32))

	srv := httptest.NewServer(server.NewHandler(logger, server.Deps{
		API:       api,
		Readiness: health.Readiness(store, nil),
	}))
	t.Cleanup(srv.Close)
	return srv, mr
}

func call(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, url, b, err)
		}
	}
	return resp.StatusCode, out
}

func Test_Locations_RedisBackedLifecycle(t *testing.T) {
	srv, mr := newRedisServer(t)

	if code, body := call(t, http.MethodPut, srv.URL+"/v1/locations/dak", `{"name":"Dak Bhawan","lat":28.622788,"lon":77.213033}`); code != http.StatusOK {
		t.Fatalf("put dak: %d %v", code, body)
	}
	if code, body := call(t, http.MethodPut, srv.URL+"/v1/locations/cp", `{"lat":28.6315,"lon":77.2167}`); code != http.StatusOK {
		t.Fatalf("put cp: %d %v", code, body)
	}

	if !mr.Exists("loc:dak") {
		t.Fatalf("record key missing")
	}
	if ok, _ := mr.SIsMember("cell:39J49LL8T4", "dak"); !ok {
		t.Fatalf("dak not indexed under its full code")
	}
	if ok, _ := mr.SIsMember("cell:39J49", "cp"); !ok {
		t.Fatalf("cp not indexed under 39J49")
	}

	_, body := call(t, http.MethodGet, srv.URL+"/v1/locations/nearby?lat=28.622788&lon=77.213033&radius=25", "")
	hits, _ := body["hits"].([]any)
	if len(hits) != 2 {
		t.Fatalf("nearby=%v", body)
	}

	// moving dak to Bengaluru must pull it out of the Delhi cells
	if code, body := call(t, http.MethodPut, srv.URL+"/v1/locations/dak", `{"lat":12.9716,"lon":77.5946}`); code != http.StatusOK || body["code"] != "4P3JK852C9" {
		t.Fatalf("move dak: %d %v", code, body)
	}
	if ok, _ := mr.SIsMember("cell:39J49", "dak"); ok {
		t.Fatalf("dak still indexed under old code")
	}
	_, body = call(t, http.MethodGet, srv.URL+"/v1/locations/region/39J49", "")
	if body["count"] != float64(1) {
		t.Fatalf("region after move=%v", body)
	}

	if code, _ := call(t, http.MethodDelete, srv.URL+"/v1/locations/cp", ""); code != http.StatusNoContent {
		t.Fatalf("delete cp: %d", code)
	}
	if mr.Exists("loc:cp") {
		t.Fatalf("record survived delete")
	}
	if code, body := call(t, http.MethodGet, srv.URL+"/v1/locations/cp", ""); code != http.StatusNotFound || body["kind"] != "not_found" {
		t.Fatalf("get deleted: %d %v", code, body)
	}
}

func Test_Readiness_FollowsRedis(t *testing.T) {
	srv, mr := newRedisServer(t)

	if code, _ := call(t, http.MethodGet, srv.URL+"/readyz", ""); code != http.StatusOK {
		t.Fatalf("ready=%d", code)
	}
	mr.SetError("ERR injected failure")
	if code, body := call(t, http.MethodGet, srv.URL+"/readyz", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("ready with failing redis=%d %v", code, body)
	}
	mr.SetError("")
	if code, _ := call(t, http.MethodGet, srv.URL+"/v1/locations/missing", ""); code != http.StatusNotFound {
		t.Fatalf("missing=%d", code)
	}
}
