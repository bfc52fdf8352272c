// Package presence runs the per-employee presence automaton. Scan cycles
// report whether each enrolled employee was detected; consecutive misses
// escalate through warnings into an automatic absence or checkout.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceActions is the slice of the attendance service the tracker
// needs for escalations.
type AttendanceActions interface {
	MarkAbsent(ctx context.Context, employeeKey string, at time.Time, remark string) (*attendance.Event, error)
	AutoCheckOut(ctx context.Context, employeeKey string, at time.Time, remark string) (*attendance.Event, error)
}

// Tracker mutates presence rows. All updates run under one lock, making the
// tracker the single writer of presence state.
type Tracker struct {
	mu      sync.Mutex
	rows    store.PresenceStore
	records store.AttendanceStore
	actions AttendanceActions
}

// NewTracker wires the presence automaton.
func NewTracker(rows store.PresenceStore, records store.AttendanceStore, actions AttendanceActions) *Tracker {
	return &Tracker{
		rows:    rows,
		records: records,
		actions: actions,
	}
}

// Apply feeds one scan-cycle signal for one employee into the automaton at
// instant at. missLimit is the number of consecutive misses that triggers
// the automatic action. The updated presence row is returned.
func (t *Tracker) Apply(ctx context.Context, employeeKey string, detected bool, at time.Time, missLimit int) (*store.PresenceRow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	date := store.DateKey(at)
	row, err := t.rows.Get(ctx, employeeKey, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Fresh row per calendar date; yesterday's state never carries over.
		row = &store.PresenceRow{
			EmployeeKey: employeeKey,
			Date:        dateOf(at),
			State:       store.PresenceNormal,
		}
	case err != nil:
		return nil, fmt.Errorf("could not load presence row: %w", err)
	}

	row.ScanCount++
	row.LastScan = &at

	if detected {
		row.LastSeen = &at
		// An auto-marked employee showing up again goes through a fresh
		// check-in on the attendance side; resetting the counter here
		// would hide that the absence happened.
		if row.State != store.PresenceAutoAbsent && row.State != store.PresenceAutoCheckedOut {
			row.MissCount = 0
			row.State = store.PresenceNormal
		}
		return t.save(ctx, row)
	}

	if row.State == store.PresenceAutoAbsent || row.State == store.PresenceAutoCheckedOut {
		return t.save(ctx, row)
	}

	row.MissCount++
	if row.MissCount < missLimit {
		row.State = store.PresenceWarning
		return t.save(ctx, row)
	}

	if err := t.escalate(ctx, row, at); err != nil {
		return nil, err
	}
	return t.save(ctx, row)
}

// escalate decides between auto-absence and auto-checkout from the current
// attendance record.
func (t *Tracker) escalate(ctx context.Context, row *store.PresenceRow, at time.Time) error {
	rec, err := t.records.Get(ctx, row.EmployeeKey, store.DateKey(at))
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = nil
	case err != nil:
		return fmt.Errorf("could not load attendance record: %w", err)
	}

	if rec == nil || rec.CheckIn == nil {
		row.State = store.PresenceAutoAbsent
		if _, err := t.actions.MarkAbsent(ctx, row.EmployeeKey, at, "not detected by presence scan"); err != nil {
			return fmt.Errorf("could not mark absent: %w", err)
		}
		return nil
	}

	row.State = store.PresenceAutoCheckedOut
	if rec.CheckedOut {
		// The day is already closed; record the state without touching it.
		return nil
	}
	if _, err := t.actions.AutoCheckOut(ctx, row.EmployeeKey, at, "not detected by presence scan"); err != nil {
		return fmt.Errorf("could not auto check out: %w", err)
	}
	return nil
}

func (t *Tracker) save(ctx context.Context, row *store.PresenceRow) (*store.PresenceRow, error) {
	if err := t.rows.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("could not save presence row: %w", err)
	}
	return row, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
