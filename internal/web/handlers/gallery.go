package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler exposes gallery maintenance operations.
type GalleryHandler struct {
	gallery *gallery.Gallery
}

// NewGalleryHandler creates the gallery endpoint handler.
func NewGalleryHandler(g *gallery.Gallery) *GalleryHandler {
	return &GalleryHandler{gallery: g}
}

// Reload handles POST /gallery/reload. Lookups in flight keep using the
// previous snapshot until the new one is swapped in.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	count, err := h.gallery.Reload(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := h.gallery.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"encodings": count,
		"version":   snap.Version(),
		"loaded_at": snap.LoadedAt(),
	})
}

// Status handles GET /gallery.
func (h *GalleryHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.gallery.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"encodings": snap.Len(),
		"version":   snap.Version(),
		"loaded_at": snap.LoadedAt(),
	})
}
