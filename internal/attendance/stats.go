package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Stats aggregates attendance records over an inclusive date range.
type Stats struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	TotalRecords     int     `json:"total_records"`
	Present          int     `json:"present"`
	Late             int     `json:"late"`
	HalfDay          int     `json:"half_day"`
	Absent           int     `json:"absent"`
	OnLeave          int     `json:"on_leave"`
	TotalWorkHours   float64 `json:"total_work_hours"`
	AverageWorkHours float64 `json:"average_work_hours"`
	AttendanceRate   float64 `json:"attendance_rate"`
}

// Stats computes period aggregates for reporting. The attendance rate
// counts every day the employee showed up, including half days.
func (s *Service) Stats(ctx context.Context, from, to string) (*Stats, error) {
	records, err := s.records.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not list attendance records: %w", err)
	}

	stats := &Stats{From: from, To: to, TotalRecords: len(records)}
	closed := 0

	for _, rec := range records {
		switch rec.Status {
		case store.StatusPresent:
			stats.Present++
		case store.StatusLate:
			stats.Late++
		case store.StatusHalfDay:
			stats.HalfDay++
		case store.StatusAbsent:
			stats.Absent++
		case store.StatusOnLeave:
			stats.OnLeave++
		}
		if rec.CheckedOut {
			stats.TotalWorkHours += rec.WorkHours
			closed++
		}
	}

	if closed > 0 {
		stats.AverageWorkHours = stats.TotalWorkHours / float64(closed)
	}
	if stats.TotalRecords > 0 {
		attended := stats.Present + stats.Late + stats.HalfDay
		stats.AttendanceRate = float64(attended) / float64(stats.TotalRecords)
	}

	return stats, nil
}
