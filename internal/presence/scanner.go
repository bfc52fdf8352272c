package presence

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/matcher"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// Extractor turns a decoded frame into face detections.
type Extractor interface {
	ExtractImage(img image.Image) ([]recognizer.Detection, error)
}

// Scanner runs one presence scan cycle: it samples a handful of frames,
// aggregates who was recognized anywhere in the window, and feeds one
// signal per enrolled employee into the tracker.
type Scanner struct {
	extractor  Extractor
	gallery    *gallery.Gallery
	employees  store.EmployeeStore
	attendance *attendance.Service
	tracker    *Tracker
	clock      attendance.Clock
	frames     int
	delay      time.Duration
}

// NewScanner wires a scan cycle. frames is how many frames one cycle
// samples, delay the pause between them.
func NewScanner(extractor Extractor, g *gallery.Gallery, employees store.EmployeeStore, att *attendance.Service, tracker *Tracker, clock attendance.Clock, frames int, delay time.Duration) *Scanner {
	if clock == nil {
		clock = attendance.SystemClock
	}
	return &Scanner{
		extractor:  extractor,
		gallery:    g,
		employees:  employees,
		attendance: att,
		tracker:    tracker,
		clock:      clock,
		frames:     frames,
		delay:      delay,
	}
}

// ScanResult is the per-employee outcome of one cycle.
type ScanResult struct {
	EmployeeKey string              `json:"employee_key"`
	Name        string              `json:"name"`
	Detected    bool                `json:"detected"`
	State       store.PresenceState `json:"state"`
	MissCount   int                 `json:"miss_count"`
}

// ScanSummary describes one completed cycle.
type ScanSummary struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Frames    int          `json:"frames"`
	Faces     int          `json:"faces"`
	Results   []ScanResult `json:"results"`
}

// Run executes one scan cycle against the source. Recognized employees are
// also routed through the attendance service, where the cooldown guard
// decides whether anything changes; the tracker sees every signal either
// way.
func (s *Scanner) Run(ctx context.Context, src camera.Source) (*ScanSummary, error) {
	set, err := s.attendance.Settings(ctx)
	if err != nil {
		return nil, err
	}

	snap := s.gallery.Snapshot()
	thresholds := matcher.Thresholds{Accept: set.AcceptThreshold, Reject: set.RejectThreshold}

	summary := &ScanSummary{
		RunID:     uuid.New().String(),
		StartedAt: s.clock.Now(),
	}
	detected := make(map[string]bool)

	for i := 0; i < s.frames; i++ {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		img, err := src.Next(ctx)
		if errors.Is(err, camera.ErrSourceDrained) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fmt.Printf("Presence scan: skipping frame: %s\n", err)
			continue
		}
		summary.Frames++

		detections, err := s.extractor.ExtractImage(img)
		if err != nil {
			fmt.Printf("Presence scan: skipping frame: %s\n", err)
			continue
		}

		for _, det := range detections {
			summary.Faces++
			result, err := matcher.Match(det.Descriptor, snap, thresholds)
			if err != nil {
				return nil, err
			}
			if result.Verdict != matcher.VerdictRecognized {
				continue
			}
			detected[result.EmployeeKey] = true
			if _, err := s.attendance.RecordRecognition(ctx, result.EmployeeKey); err != nil {
				return nil, err
			}
		}
	}

	now := s.clock.Now()
	employees, err := s.employees.ListEnrolled(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list employees: %w", err)
	}

	for _, emp := range employees {
		row, err := s.tracker.Apply(ctx, emp.Key, detected[emp.Key], now, set.PresenceMissLimit)
		if err != nil {
			return nil, err
		}
		summary.Results = append(summary.Results, ScanResult{
			EmployeeKey: emp.Key,
			Name:        emp.Name,
			Detected:    detected[emp.Key],
			State:       row.State,
			MissCount:   row.MissCount,
		})
	}

	return summary, nil
}
