package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadinessReporter is implemented by the ingest runner.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Pinger is implemented by the location store.
type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 500 * time.Millisecond

// Readiness reports ready when the store answers a ping and, if an ingest
// reporter is given, the consumer holds at least one partition.
func Readiness(store Pinger, rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status     string  `json:"status"`
			Store      string  `json:"store"`
			Ingest     string  `json:"ingest,omitempty"`
			Partitions []int32 `json:"partitions,omitempty"`
		}
		out := resp{Status: "ready", Store: "ok"}
		ready := true

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			err := store.Ping(ctx)
			cancel()
			if err != nil {
				out.Store = err.Error()
				ready = false
			}
		}
		if rr != nil {
			ok, parts := rr.Readiness()
			if ok {
				out.Ingest = "ok"
				out.Partitions = parts
			} else {
				out.Ingest = "not_assigned"
				ready = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			out.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
