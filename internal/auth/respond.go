// respond.go — shared JSON response helpers used by all service handlers.
package auth

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error envelope: {"message": ..., "error": ...}.
// message is the stable user-facing string; detail carries diagnostics and
// must never contain credentials or stack traces.
func WriteError(w http.ResponseWriter, status int, message, detail string) {
	WriteJSON(w, status, map[string]string{"message": message, "error": detail})
}
