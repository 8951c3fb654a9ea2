// system.go — GET /system/info endpoint.
package handlers

import (
	"encoding/json"
	"net/http"
)

// SystemInfo is the response body for GET /system/info.
type SystemInfo struct {
	Service  string          `json:"service"`
	Version  string          `json:"version"`
	Features map[string]bool `json:"features"`
}

// HandleSystemInfo reports the service version and which optional
// integrations are configured. Feature values are fixed at startup.
func HandleSystemInfo(version string, features map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := SystemInfo{
			Service:  "cineverse",
			Version:  version,
			Features: features,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(info) //nolint:errcheck
	}
}
