// health_test.go — liveness, readiness and system info handlers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(_ context.Context) error {
	return m.err
}

func TestLivenessAlwaysOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Liveness(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestReadinessNoDeps(t *testing.T) {
	h := Readiness(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no probes", w.Code)
	}
}

func TestReadinessHealthyDeps(t *testing.T) {
	h := Readiness(&mockPinger{}, &mockPinger{})
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp) //nolint:errcheck
	if resp.Checks["mongo"] != "ok" || resp.Checks["redis"] != "ok" {
		t.Errorf("checks = %v, want both ok", resp.Checks)
	}
}

func TestReadinessDegradedOnAnyFailure(t *testing.T) {
	h := Readiness(&mockPinger{}, &mockPinger{err: errors.New("connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp) //nolint:errcheck
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["mongo"] != "ok" {
		t.Errorf("checks.mongo = %q, want ok", resp.Checks["mongo"])
	}
	if resp.Checks["redis"] == "ok" {
		t.Error("failing redis probe reported ok")
	}
}

func TestSystemInfo(t *testing.T) {
	h := HandleSystemInfo("1.4.0", map[string]bool{"payments": true, "email": false})
	req := httptest.NewRequest(http.MethodGet, "/system/info", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var info SystemInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Service != "cineverse" || info.Version != "1.4.0" {
		t.Errorf("info = %+v", info)
	}
	if !info.Features["payments"] || info.Features["email"] {
		t.Errorf("features = %v", info.Features)
	}
}
