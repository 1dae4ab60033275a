package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedReporter struct {
	ready bool
	parts []int32
}

func (f fixedReporter) Readiness() (bool, []int32) { return f.ready, f.parts }

func TestReadiness(t *testing.T) {
	okStore := pingFunc(func(context.Context) error { return nil })
	badStore := pingFunc(func(context.Context) error { return errors.New("redis down") })

	cases := []struct {
		name       string
		store      Pinger
		rr         ReadinessReporter
		wantStatus int
		wantBody   string
	}{
		{"store only", okStore, nil, http.StatusOK, "ready"},
		{"store down", badStore, nil, http.StatusServiceUnavailable, "not_ready"},
		{"ingest assigned", okStore, fixedReporter{true, []int32{0, 1}}, http.StatusOK, "ready"},
		{"ingest waiting", okStore, fixedReporter{false, nil}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Readiness(tc.store, tc.rr)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d", rr.Code, tc.wantStatus)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.wantBody {
				t.Fatalf("status=%q want %q", body.Status, tc.wantBody)
			}
		})
	}
}
