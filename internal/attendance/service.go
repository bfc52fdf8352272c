// Package attendance implements the per-day attendance state machine and
// the cooldown guard in front of it. A record moves from no-record through
// checked-in to checked-out; absence and leave are terminal alternates set
// by the presence tracker or manual actions.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// ErrRecordConflict is returned when two writers race on the same
// (employee, date) record and the conflict cannot be resolved by re-reading.
// Callers may retry the operation.
var ErrRecordConflict = errors.New("concurrent attendance record update")

// Action names what a recognition or manual event did to the record.
type Action string

const (
	ActionCheckedIn     Action = "checked_in"
	ActionCheckedOut    Action = "checked_out"
	ActionMarkedAbsent  Action = "marked_absent"
	ActionMarkedOnLeave Action = "marked_on_leave"
	ActionNone          Action = "none"
)

// intent narrows what an event is allowed to do to a record. Recognition
// events take whichever transition applies; manual actions must not turn
// into the opposite one.
type intent int

const (
	intentAuto intent = iota
	intentCheckIn
	intentCheckOut
)

// Event is the outcome of one attendance evaluation.
type Event struct {
	EmployeeKey string
	Action      Action
	Record      *store.AttendanceRecord
	Note        string
}

// Schedule is the working-hours configuration effective for one employee on
// one date, after applying per-employee overrides to the global settings.
type Schedule struct {
	CheckIn       time.Time
	CheckOut      time.Time
	LateDeadline  time.Time
	EarlyDeadline time.Time
	HalfDayHours  float64
	FullDayHours  float64
}

// Service drives attendance records. All read-modify-write cycles on one
// (employee, date) record are serialized through striped locks, so a live
// recognition and a presence escalation cannot produce an inconsistent
// record.
type Service struct {
	records   store.AttendanceStore
	employees store.EmployeeStore
	settings  store.SettingsStore
	clock     Clock
	guard     *Guard
	locks     stripedLocks
}

// NewService wires the attendance state machine. A nil clock falls back to
// the system clock.
func NewService(records store.AttendanceStore, employees store.EmployeeStore, settings store.SettingsStore, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock
	}
	return &Service{
		records:   records,
		employees: employees,
		settings:  settings,
		clock:     clock,
		guard:     NewGuard(),
	}
}

// Settings returns the current attendance settings. Attendance evaluation
// reads them fresh on every event, so updates take effect without restart.
func (s *Service) Settings(ctx context.Context) (*store.Settings, error) {
	set, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load attendance settings: %w", err)
	}
	return set, nil
}

// RecordRecognition applies one recognized-face event. The cooldown guard
// runs first; a gated event changes nothing and reports ActionNone. An
// allowed event checks the employee in, checks them out, or does nothing if
// the day is already closed.
func (s *Service) RecordRecognition(ctx context.Context, employeeKey string) (*Event, error) {
	set, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cooldown := time.Duration(set.CooldownSeconds) * time.Second
	if !s.guard.Allow(employeeKey, now, cooldown) {
		return &Event{
			EmployeeKey: employeeKey,
			Action:      ActionNone,
			Note:        "cooldown active",
		}, nil
	}

	return s.apply(ctx, employeeKey, now, store.MethodAuto, set, intentAuto)
}

// CheckIn performs a manual check-in at the current instant. Manual actions
// bypass the cooldown guard.
func (s *Service) CheckIn(ctx context.Context, employeeKey string) (*Event, error) {
	set, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	ev, err := s.apply(ctx, employeeKey, s.clock.Now(), store.MethodManual, set, intentCheckIn)
	if err != nil {
		return nil, err
	}
	if ev.Action != ActionCheckedIn {
		return nil, fmt.Errorf("cannot check in employee %s: %s", employeeKey, ev.Note)
	}
	return ev, nil
}

// CheckOut performs a manual check-out at the current instant.
func (s *Service) CheckOut(ctx context.Context, employeeKey string) (*Event, error) {
	set, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	ev, err := s.apply(ctx, employeeKey, s.clock.Now(), store.MethodManual, set, intentCheckOut)
	if err != nil {
		return nil, err
	}
	if ev.Action != ActionCheckedOut {
		return nil, fmt.Errorf("cannot check out employee %s: %s", employeeKey, ev.Note)
	}
	return ev, nil
}

// apply runs one event through the state machine at instant now.
func (s *Service) apply(ctx context.Context, employeeKey string, now time.Time, method store.CheckinMethod, set *store.Settings, want intent) (*Event, error) {
	emp, err := s.employees.GetByKey(ctx, employeeKey)
	if err != nil {
		return nil, fmt.Errorf("could not load employee %s: %w", employeeKey, err)
	}

	// A checkout past midnight belongs to the check-in's date, so an open
	// record from the previous day wins over starting a new one.
	if want != intentCheckIn {
		if ev, handled, err := s.closeOvernight(ctx, emp, set, now); err != nil {
			return nil, err
		} else if handled {
			return ev, nil
		}
	}

	date := store.DateKey(now)
	mu := s.locks.lock(employeeKey, date)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.records.Get(ctx, employeeKey, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if want == intentCheckOut {
			return &Event{EmployeeKey: employeeKey, Action: ActionNone, Note: "not checked in"}, nil
		}
		return s.checkIn(ctx, emp, set, now, method, want)
	case err != nil:
		return nil, fmt.Errorf("could not load attendance record: %w", err)
	}

	return s.advance(ctx, emp, set, rec, now, method, want)
}

// advance moves an existing record forward for one event.
func (s *Service) advance(ctx context.Context, emp *store.Employee, set *store.Settings, rec *store.AttendanceRecord, now time.Time, method store.CheckinMethod, want intent) (*Event, error) {
	switch {
	case rec.CheckIn == nil && rec.Status == store.StatusOnLeave:
		return &Event{EmployeeKey: emp.Key, Action: ActionNone, Record: rec, Note: "on leave"}, nil

	case rec.CheckIn == nil:
		if want == intentCheckOut {
			return &Event{EmployeeKey: emp.Key, Action: ActionNone, Record: rec, Note: "not checked in"}, nil
		}
		// Auto-marked absent earlier; a real event re-opens the day.
		sched, err := s.scheduleFor(emp, set, now)
		if err != nil {
			return nil, err
		}
		rec.CheckIn = &now
		rec.Status = statusAtCheckIn(now, sched)
		rec.Method = method
		rec.Remarks = appendRemark(rec.Remarks, "returned after absence")
		if err := s.records.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("could not update attendance record: %w", err)
		}
		return &Event{EmployeeKey: emp.Key, Action: ActionCheckedIn, Record: rec}, nil

	case !rec.CheckedOut:
		if want == intentCheckIn {
			return &Event{EmployeeKey: emp.Key, Action: ActionNone, Record: rec, Note: "already checked in"}, nil
		}
		sched, err := s.scheduleFor(emp, set, rec.Date)
		if err != nil {
			return nil, err
		}
		if err := s.checkOut(ctx, rec, now, sched, ""); err != nil {
			return nil, err
		}
		return &Event{EmployeeKey: emp.Key, Action: ActionCheckedOut, Record: rec}, nil

	default:
		return &Event{EmployeeKey: emp.Key, Action: ActionNone, Record: rec, Note: "already checked out"}, nil
	}
}

// checkIn creates the day's record. Losing a create race falls back to
// advancing the record the winner created.
func (s *Service) checkIn(ctx context.Context, emp *store.Employee, set *store.Settings, now time.Time, method store.CheckinMethod, want intent) (*Event, error) {
	sched, err := s.scheduleFor(emp, set, now)
	if err != nil {
		return nil, err
	}

	rec := &store.AttendanceRecord{
		EmployeeKey: emp.Key,
		Date:        dateOf(now),
		CheckIn:     &now,
		Status:      statusAtCheckIn(now, sched),
		Method:      method,
	}

	if err := s.records.Create(ctx, rec); err != nil {
		existing, getErr := s.records.Get(ctx, emp.Key, store.DateKey(now))
		if getErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrRecordConflict, err)
		}
		return s.advance(ctx, emp, set, existing, now, method, want)
	}

	return &Event{EmployeeKey: emp.Key, Action: ActionCheckedIn, Record: rec}, nil
}

// checkOut closes a record at instant at and reclassifies its status from
// the worked duration. Duration is absolute elapsed time, so records
// crossing midnight still compute correctly.
func (s *Service) checkOut(ctx context.Context, rec *store.AttendanceRecord, at time.Time, sched *Schedule, remark string) error {
	if at.Before(*rec.CheckIn) {
		at = *rec.CheckIn
	}

	rec.CheckOut = &at
	rec.CheckedOut = true
	rec.WorkHours = at.Sub(*rec.CheckIn).Hours()

	if rec.WorkHours < sched.HalfDayHours {
		rec.Status = store.StatusHalfDay
	}
	if at.Before(sched.EarlyDeadline) {
		rec.Remarks = appendRemark(rec.Remarks, "early departure")
	}
	if remark != "" {
		rec.Remarks = appendRemark(rec.Remarks, remark)
	}

	if err := s.records.Update(ctx, rec); err != nil {
		return fmt.Errorf("could not update attendance record: %w", err)
	}
	return nil
}

// closeOvernight closes the previous day's record when it is still open.
func (s *Service) closeOvernight(ctx context.Context, emp *store.Employee, set *store.Settings, now time.Time) (*Event, bool, error) {
	prevDate := store.DateKey(now.AddDate(0, 0, -1))
	mu := s.locks.lock(emp.Key, prevDate)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.records.Get(ctx, emp.Key, prevDate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not load attendance record: %w", err)
	}
	if rec.CheckIn == nil || rec.CheckedOut {
		return nil, false, nil
	}

	sched, err := s.scheduleFor(emp, set, rec.Date)
	if err != nil {
		return nil, false, err
	}
	if err := s.checkOut(ctx, rec, now, sched, "checked out after midnight"); err != nil {
		return nil, false, err
	}
	return &Event{EmployeeKey: emp.Key, Action: ActionCheckedOut, Record: rec}, true, nil
}

// MarkAbsent marks the employee absent for the date of instant at. A day
// with a real check-in is left alone.
func (s *Service) MarkAbsent(ctx context.Context, employeeKey string, at time.Time, remark string) (*Event, error) {
	return s.markTerminal(ctx, employeeKey, at, store.StatusAbsent, ActionMarkedAbsent, remark)
}

// MarkOnLeave marks the employee on leave for the date of instant at.
func (s *Service) MarkOnLeave(ctx context.Context, employeeKey string, at time.Time, remark string) (*Event, error) {
	return s.markTerminal(ctx, employeeKey, at, store.StatusOnLeave, ActionMarkedOnLeave, remark)
}

func (s *Service) markTerminal(ctx context.Context, employeeKey string, at time.Time, status store.AttendanceStatus, action Action, remark string) (*Event, error) {
	date := store.DateKey(at)
	mu := s.locks.lock(employeeKey, date)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.records.Get(ctx, employeeKey, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = &store.AttendanceRecord{
			EmployeeKey: employeeKey,
			Date:        dateOf(at),
			Status:      status,
			Method:      store.MethodAuto,
			Remarks:     remark,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrRecordConflict, err)
		}
		return &Event{EmployeeKey: employeeKey, Action: action, Record: rec}, nil

	case err != nil:
		return nil, fmt.Errorf("could not load attendance record: %w", err)

	case rec.CheckIn != nil:
		return &Event{EmployeeKey: employeeKey, Action: ActionNone, Record: rec, Note: "already checked in"}, nil

	case rec.Status == store.StatusOnLeave && status == store.StatusAbsent:
		return &Event{EmployeeKey: employeeKey, Action: ActionNone, Record: rec, Note: "on leave"}, nil
	}

	rec.Status = status
	rec.Remarks = appendRemark(rec.Remarks, remark)
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("could not update attendance record: %w", err)
	}
	return &Event{EmployeeKey: employeeKey, Action: action, Record: rec}, nil
}

// AutoCheckOut closes an open record at the given instant. The presence
// tracker uses it with the timestamp of the decisive missed scan.
func (s *Service) AutoCheckOut(ctx context.Context, employeeKey string, at time.Time, remark string) (*Event, error) {
	set, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	emp, err := s.employees.GetByKey(ctx, employeeKey)
	if err != nil {
		return nil, fmt.Errorf("could not load employee %s: %w", employeeKey, err)
	}

	date := store.DateKey(at)
	mu := s.locks.lock(employeeKey, date)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.records.Get(ctx, employeeKey, date)
	if errors.Is(err, store.ErrNotFound) {
		return &Event{EmployeeKey: employeeKey, Action: ActionNone, Note: "no record"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load attendance record: %w", err)
	}
	if rec.CheckIn == nil || rec.CheckedOut {
		return &Event{EmployeeKey: employeeKey, Action: ActionNone, Record: rec, Note: "nothing to close"}, nil
	}

	sched, err := s.scheduleFor(emp, set, rec.Date)
	if err != nil {
		return nil, err
	}
	if err := s.checkOut(ctx, rec, at, sched, remark); err != nil {
		return nil, err
	}
	return &Event{EmployeeKey: employeeKey, Action: ActionCheckedOut, Record: rec}, nil
}

// CloseOpenAutoRecords checks out every record of the day that was opened
// automatically and never closed. Called when the live watch loop stops.
func (s *Service) CloseOpenAutoRecords(ctx context.Context) (int, error) {
	now := s.clock.Now()
	open, err := s.records.ListOpenAuto(ctx, store.DateKey(now))
	if err != nil {
		return 0, fmt.Errorf("could not list open records: %w", err)
	}

	closed := 0
	for _, rec := range open {
		ev, err := s.AutoCheckOut(ctx, rec.EmployeeKey, now, "auto checkout on shutdown")
		if err != nil {
			return closed, err
		}
		if ev.Action == ActionCheckedOut {
			closed++
		}
	}
	return closed, nil
}

// scheduleFor resolves the effective working hours for one employee on the
// date of ref, applying per-employee overrides.
func (s *Service) scheduleFor(emp *store.Employee, set *store.Settings, ref time.Time) (*Schedule, error) {
	checkInClock := set.CheckInTime
	checkOutClock := set.CheckOutTime
	halfDay := set.HalfDayHours
	fullDay := set.FullDayHours

	if emp.UseCustomHours {
		if emp.CustomCheckIn != "" {
			checkInClock = emp.CustomCheckIn
		}
		if emp.CustomCheckOut != "" {
			checkOutClock = emp.CustomCheckOut
		}
		if emp.CustomHalfDayHrs > 0 {
			halfDay = emp.CustomHalfDayHrs
		}
		if emp.CustomFullDayHrs > 0 {
			fullDay = emp.CustomFullDayHrs
		}
	}

	checkIn, err := clockOnDate(checkInClock, ref)
	if err != nil {
		return nil, err
	}
	checkOut, err := clockOnDate(checkOutClock, ref)
	if err != nil {
		return nil, err
	}

	return &Schedule{
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		LateDeadline:  checkIn.Add(time.Duration(set.LateThresholdMin) * time.Minute),
		EarlyDeadline: checkOut.Add(-time.Duration(set.EarlyThresholdMin) * time.Minute),
		HalfDayHours:  halfDay,
		FullDayHours:  fullDay,
	}, nil
}

func statusAtCheckIn(now time.Time, sched *Schedule) store.AttendanceStatus {
	if now.After(sched.LateDeadline) {
		return store.StatusLate
	}
	return store.StatusPresent
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func appendRemark(remarks, remark string) string {
	if remark == "" {
		return remarks
	}
	if remarks == "" {
		return remark
	}
	return remarks + "; " + remark
}
