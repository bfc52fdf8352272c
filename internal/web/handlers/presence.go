package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/presence"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// SourceFactory opens a camera source for one scan cycle.
type SourceFactory func(ctx context.Context) (camera.Source, error)

// PresenceHandler serves the presence board and triggers scan cycles.
type PresenceHandler struct {
	scanner *presence.Scanner
	tracker *presence.Tracker
	source  SourceFactory
}

// NewPresenceHandler creates the presence endpoint handler.
func NewPresenceHandler(scanner *presence.Scanner, tracker *presence.Tracker, source SourceFactory) *PresenceHandler {
	return &PresenceHandler{
		scanner: scanner,
		tracker: tracker,
		source:  source,
	}
}

// Scan handles POST /presence/scan. It runs one scan cycle against the
// configured camera and returns the per-employee outcome.
func (h *PresenceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	src, err := h.source(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer src.Close()

	summary, err := h.scanner.Run(r.Context(), src)
	switch {
	case errors.Is(err, matcher.ErrGalleryEmpty):
		respondError(w, http.StatusConflict, "no employees enrolled")
		return
	case errors.Is(err, store.ErrSettingsMissing):
		respondError(w, http.StatusServiceUnavailable, "attendance settings missing")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Board handles GET /presence?date=YYYY-MM-DD.
func (h *PresenceHandler) Board(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	board, err := h.tracker.Board(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// Reset handles DELETE /presence?date=YYYY-MM-DD.
func (h *PresenceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	removed, err := h.tracker.ResetDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"removed": removed,
	})
}
