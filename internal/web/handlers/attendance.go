package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceHandler serves attendance records and manual actions.
type AttendanceHandler struct {
	service *attendance.Service
	records store.AttendanceStore
}

// NewAttendanceHandler creates the attendance endpoint handler.
func NewAttendanceHandler(service *attendance.Service, records store.AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		records: records,
	}
}

// List handles GET /attendance?date=YYYY-MM-DD.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	records, err := h.records.ListByDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": records,
	})
}

// Stats handles GET /attendance/stats?from=...&to=...
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respondError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	stats, err := h.service.Stats(r.Context(), from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type manualActionRequest struct {
	EmployeeKey string `json:"employee_key"`
}

// CheckIn handles POST /attendance/checkin.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.manualAction(w, r, h.service.CheckIn)
}

// CheckOut handles POST /attendance/checkout.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.manualAction(w, r, h.service.CheckOut)
}

func (h *AttendanceHandler) manualAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (*attendance.Event, error)) {
	var req manualActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EmployeeKey == "" {
		respondError(w, http.StatusBadRequest, "employee_key is required")
		return
	}

	ev, err := action(r.Context(), req.EmployeeKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "unknown employee")
		return
	case errors.Is(err, store.ErrSettingsMissing):
		respondError(w, http.StatusServiceUnavailable, "attendance settings missing")
		return
	case err != nil:
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"action": ev.Action,
		"record": ev.Record,
	})
}
