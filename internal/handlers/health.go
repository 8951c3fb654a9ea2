// Package handlers provides the shared operational HTTP endpoints: liveness,
// readiness, and system info.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is anything that can confirm a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Liveness always reports ok. It only proves the process is serving.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{Status: "ok"}) //nolint:errcheck
}

// Readiness probes the backing stores. A nil pinger is skipped, so a
// deployment without Redis still reports ready. Any failing probe turns the
// status degraded and the response 503.
func Readiness(db, cache Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		probe := func(name string, p Pinger) {
			if p == nil {
				return
			}
			if err := p.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				return
			}
			resp.Checks[name] = "ok"
		}
		probe("mongo", db)
		probe("redis", cache)

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
}
