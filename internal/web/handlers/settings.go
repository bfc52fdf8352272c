package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// SettingsHandler serves the attendance settings row.
type SettingsHandler struct {
	settings store.SettingsStore
}

// NewSettingsHandler creates the settings endpoint handler.
func NewSettingsHandler(settings store.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, err := h.settings.Get(r.Context())
	if errors.Is(err, store.ErrSettingsMissing) {
		respondError(w, http.StatusNotFound, "attendance settings missing")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, set)
}

// Put handles PUT /settings. Changes take effect on the next attendance
// evaluation; no restart needed.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var set store.Settings
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateSettings(&set); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.Put(r.Context(), &set); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func validateSettings(set *store.Settings) error {
	if _, err := time.Parse("15:04", set.CheckInTime); err != nil {
		return errors.New("check_in_time must be HH:MM")
	}
	if _, err := time.Parse("15:04", set.CheckOutTime); err != nil {
		return errors.New("check_out_time must be HH:MM")
	}
	if set.AcceptThreshold <= 0 || set.RejectThreshold <= set.AcceptThreshold {
		return errors.New("thresholds must satisfy 0 < accept < reject")
	}
	if set.HalfDayHours <= 0 || set.FullDayHours < set.HalfDayHours {
		return errors.New("day hours must satisfy 0 < half <= full")
	}
	if set.CooldownSeconds < 0 {
		return errors.New("cooldown_seconds must not be negative")
	}
	if set.PresenceMissLimit < 1 {
		return errors.New("presence_miss_limit must be at least 1")
	}
	return nil
}
