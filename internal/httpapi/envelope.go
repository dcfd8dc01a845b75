package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the JSON response shape every token-prefixed query endpoint
// uses (§4.F): {success, query, data} on success, {success: false, error}
// on failure. Both are always written with HTTP 200 — query-time errors are
// embedded in the body, never surfaced as transport failures (§7).
type envelope struct {
	Success bool        `json:"success"`
	Query   string      `json:"query,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, query string, data interface{}) {
	writeJSON(w, envelope{Success: true, Query: query, Data: data})
}

func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, envelope{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
