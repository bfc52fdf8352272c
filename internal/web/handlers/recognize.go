// Package handlers contains the HTTP handlers of the attendance API.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// maxUploadBytes bounds the size of an uploaded frame.
const maxUploadBytes = 16 << 20

// recentFeedSize is how many recognitions the dashboard feed keeps.
const recentFeedSize = 20

// Extractor turns a raw frame into face detections.
type Extractor interface {
	Extract(frame []byte) ([]recognizer.Detection, error)
}

// FaceMatch is one face of a processed frame.
type FaceMatch struct {
	Verdict     matcher.Verdict `json:"verdict"`
	EmployeeKey string          `json:"employee_key,omitempty"`
	Confidence  float64         `json:"confidence"`
	Distance    float64         `json:"distance"`
	Region      regionJSON      `json:"region"`
	Action      string          `json:"attendance_action,omitempty"`
	Note        string          `json:"note,omitempty"`
}

type regionJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RecognitionEvent is one entry of the recent-recognition feed.
type RecognitionEvent struct {
	EmployeeKey string    `json:"employee_key"`
	Confidence  float64   `json:"confidence"`
	Action      string    `json:"action"`
	At          time.Time `json:"at"`
}

// RecognizeHandler processes uploaded frames.
type RecognizeHandler struct {
	extractor  Extractor
	gallery    *gallery.Gallery
	attendance *attendance.Service

	mu     sync.Mutex
	recent []RecognitionEvent
}

// NewRecognizeHandler creates the recognize endpoint handler.
func NewRecognizeHandler(extractor Extractor, g *gallery.Gallery, att *attendance.Service) *RecognizeHandler {
	return &RecognizeHandler{
		extractor:  extractor,
		gallery:    g,
		attendance: att,
	}
}

// Recognize handles POST /recognize. The frame arrives either as a
// multipart "image" field or as the raw request body. Each recognized face
// is routed through the attendance state machine; the cooldown guard
// decides whether anything changes.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	frame, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	detections, err := h.extractor.Extract(frame)
	switch {
	case errors.Is(err, recognizer.ErrInvalidFrame):
		respondError(w, http.StatusBadRequest, "invalid image payload")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := h.gallery.Snapshot()
	set, err := h.attendance.Settings(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	thresholds := matcher.Thresholds{Accept: set.AcceptThreshold, Reject: set.RejectThreshold}

	faces := make([]FaceMatch, 0, len(detections))
	for _, det := range detections {
		result, err := matcher.Match(det.Descriptor, snap, thresholds)
		if errors.Is(err, matcher.ErrGalleryEmpty) {
			respondError(w, http.StatusConflict, "no employees enrolled")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		face := FaceMatch{
			Verdict:     result.Verdict,
			EmployeeKey: result.EmployeeKey,
			Confidence:  result.Confidence,
			Distance:    result.Distance,
			Region: regionJSON{
				X:      det.Region.Min.X,
				Y:      det.Region.Min.Y,
				Width:  det.Region.Dx(),
				Height: det.Region.Dy(),
			},
		}

		if result.Verdict == matcher.VerdictRecognized {
			ev, err := h.attendance.RecordRecognition(r.Context(), result.EmployeeKey)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			face.Action = string(ev.Action)
			face.Note = ev.Note
			h.remember(RecognitionEvent{
				EmployeeKey: result.EmployeeKey,
				Confidence:  result.Confidence,
				Action:      string(ev.Action),
				At:          time.Now(),
			})
		}

		faces = append(faces, face)
	}

	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}

// Recent handles GET /recognitions. Newest entries first.
func (h *RecognizeHandler) Recent(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	feed := make([]RecognitionEvent, len(h.recent))
	copy(feed, h.recent)
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"recognitions": feed})
}

func (h *RecognizeHandler) remember(ev RecognitionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append([]RecognitionEvent{ev}, h.recent...)
	if len(h.recent) > recentFeedSize {
		h.recent = h.recent[:recentFeedSize]
	}
}

func readFrame(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("could not parse upload: %w", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("missing image field: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, fmt.Errorf("could not read image upload: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("missing image payload")
	}
	return data, nil
}
