package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// dateParam reads the "date" query parameter, defaulting to today.
func dateParam(r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return store.DateKey(time.Now()), true
	}
	if _, err := time.Parse(store.DateLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
