package presence

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

type trackerFixture struct {
	tracker  *Tracker
	service  *attendance.Service
	records  *mock.AttendanceStore
	presence *mock.PresenceStore
	clock    *fakeClock
}

func newTrackerFixture(t *testing.T, at time.Time) *trackerFixture {
	t.Helper()
	employees := mock.NewEmployeeStore()
	employees.Add(store.Employee{Key: "emp-001", Name: "Jana Novakova", Active: true}, 1)

	records := mock.NewAttendanceStore()
	rows := mock.NewPresenceStore()
	clock := &fakeClock{now: at}
	service := attendance.NewService(records, employees, mock.NewSettingsStore(mock.DefaultSettings()), clock)

	return &trackerFixture{
		tracker:  NewTracker(rows, records, service),
		service:  service,
		records:  records,
		presence: rows,
		clock:    clock,
	}
}

func scanAt(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestMissesEscalateThroughWarnings(t *testing.T) {
	f := newTrackerFixture(t, scanAt(10, 0))
	ctx := context.Background()

	row, err := f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 0), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceWarning || row.MissCount != 1 {
		t.Errorf("expected Warning(1), got %s(%d)", row.State, row.MissCount)
	}

	row, err = f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceWarning || row.MissCount != 2 {
		t.Errorf("expected Warning(2), got %s(%d)", row.State, row.MissCount)
	}
}

func TestThirdMissWithoutCheckInMarksAbsent(t *testing.T) {
	f := newTrackerFixture(t, scanAt(10, 0))
	ctx := context.Background()

	f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 0), 3)
	f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 5), 3)
	row, err := f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 10), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceAutoAbsent {
		t.Fatalf("expected AutoAbsent, got %s", row.State)
	}

	rec, err := f.records.Get(ctx, "emp-001", "2025-03-10")
	if err != nil {
		t.Fatalf("expected an attendance record: %v", err)
	}
	if rec.Status != store.StatusAbsent {
		t.Errorf("expected ABSENT, got %s", rec.Status)
	}
}

func TestThirdMissWithOpenCheckInAutoChecksOut(t *testing.T) {
	f := newTrackerFixture(t, scanAt(9, 0))
	ctx := context.Background()

	if _, err := f.service.RecordRecognition(ctx, "emp-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.tracker.Apply(ctx, "emp-001", false, scanAt(13, 0), 3)
	f.tracker.Apply(ctx, "emp-001", false, scanAt(13, 5), 3)
	thirdMiss := scanAt(13, 10)
	row, err := f.tracker.Apply(ctx, "emp-001", false, thirdMiss, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceAutoCheckedOut {
		t.Fatalf("expected AutoCheckedOut, got %s", row.State)
	}

	rec, _ := f.records.Get(ctx, "emp-001", "2025-03-10")
	if !rec.CheckedOut {
		t.Fatal("expected the record to be closed")
	}
	if !rec.CheckOut.Equal(thirdMiss) {
		t.Errorf("checkout must use the third miss instant, got %v", rec.CheckOut)
	}
}

func TestDetectionResetsWarnings(t *testing.T) {
	f := newTrackerFixture(t, scanAt(10, 0))
	ctx := context.Background()

	f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 0), 3)
	f.tracker.Apply(ctx, "emp-001", false, scanAt(10, 5), 3)
	row, err := f.tracker.Apply(ctx, "emp-001", true, scanAt(10, 10), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceNormal || row.MissCount != 0 {
		t.Errorf("expected Normal(0), got %s(%d)", row.State, row.MissCount)
	}
}

func TestDetectionDoesNotResetAutoAbsent(t *testing.T) {
	f := newTrackerFixture(t, scanAt(10, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.tracker.Apply(ctx, "emp-001", false, scanAt(10, i*5), 3)
	}

	row, err := f.tracker.Apply(ctx, "emp-001", true, scanAt(11, 0), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.State != store.PresenceAutoAbsent {
		t.Errorf("detection alone must not clear AutoAbsent, got %s", row.State)
	}
	if row.LastSeen == nil {
		t.Error("the detection must still be recorded as last seen")
	}
}

func TestThirdMissOnClosedDayLeavesRecordAlone(t *testing.T) {
	f := newTrackerFixture(t, scanAt(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")
	f.clock.now = scanAt(18, 0)
	f.service.RecordRecognition(ctx, "emp-001")
	before, _ := f.records.Get(ctx, "emp-001", "2025-03-10")

	for i := 0; i < 3; i++ {
		if _, err := f.tracker.Apply(ctx, "emp-001", false, scanAt(18, 10+i), 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	after, _ := f.records.Get(ctx, "emp-001", "2025-03-10")
	if !after.CheckOut.Equal(*before.CheckOut) {
		t.Error("a closed day must not be re-checked-out by the tracker")
	}
}

func TestBoardCounts(t *testing.T) {
	f := newTrackerFixture(t, scanAt(10, 0))
	ctx := context.Background()

	seed := []store.PresenceRow{
		{EmployeeKey: "emp-001", Date: scanAt(0, 0), State: store.PresenceNormal},
		{EmployeeKey: "emp-002", Date: scanAt(0, 0), State: store.PresenceWarning, MissCount: 2},
		{EmployeeKey: "emp-003", Date: scanAt(0, 0), State: store.PresenceAutoAbsent, MissCount: 3},
	}
	for i := range seed {
		if err := f.presence.Upsert(ctx, &seed[i]); err != nil {
			t.Fatalf("could not seed presence row: %v", err)
		}
	}

	board, err := f.tracker.Board(ctx, "2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.Tracked != 3 || board.Present != 1 || board.Warnings != 1 || board.AutoAbsent != 1 {
		t.Errorf("unexpected board counts: %+v", board)
	}
}
