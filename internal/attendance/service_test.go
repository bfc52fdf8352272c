package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type fixture struct {
	service   *Service
	records   *mock.AttendanceStore
	employees *mock.EmployeeStore
	settings  *mock.SettingsStore
	clock     *fakeClock
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	employees := mock.NewEmployeeStore()
	employees.Add(store.Employee{Key: "emp-001", Name: "Jana Novakova", Active: true}, 2)

	records := mock.NewAttendanceStore()
	settings := mock.NewSettingsStore(mock.DefaultSettings())
	clock := &fakeClock{now: at}

	return &fixture{
		service:   NewService(records, employees, settings, clock),
		records:   records,
		employees: employees,
		settings:  settings,
		clock:     clock,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestCheckInOnTimeIsPresent(t *testing.T) {
	f := newFixture(t, at(8, 58))

	ev, err := f.service.RecordRecognition(context.Background(), "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionCheckedIn {
		t.Fatalf("expected checked_in, got %s", ev.Action)
	}
	if ev.Record.Status != store.StatusPresent {
		t.Errorf("expected PRESENT, got %s", ev.Record.Status)
	}
}

func TestCheckInWithinLateThresholdIsPresent(t *testing.T) {
	// Standard check-in 09:00, late threshold 15 minutes.
	f := newFixture(t, at(9, 15))

	ev, err := f.service.RecordRecognition(context.Background(), "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Record.Status != store.StatusPresent {
		t.Errorf("arrival at the threshold is still PRESENT, got %s", ev.Record.Status)
	}
}

func TestCheckInAfterLateThresholdIsLate(t *testing.T) {
	f := newFixture(t, at(9, 16))

	ev, err := f.service.RecordRecognition(context.Background(), "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Record.Status != store.StatusLate {
		t.Errorf("expected LATE, got %s", ev.Record.Status)
	}
}

func TestCooldownBlocksSecondRecognition(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	first, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Action != ActionCheckedIn {
		t.Fatalf("expected checked_in, got %s", first.Action)
	}

	f.clock.advance(30 * time.Second)
	second, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Action != ActionNone {
		t.Errorf("expected cooldown to block the event, got %s", second.Action)
	}

	rec, err := f.records.Get(ctx, "emp-001", "2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CheckOut != nil {
		t.Error("gated recognition must leave the record unchanged")
	}
}

func TestRecognitionAfterCooldownChecksOut(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	if _, err := f.service.RecordRecognition(ctx, "emp-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.clock.advance(9 * time.Hour)
	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionCheckedOut {
		t.Fatalf("expected checked_out, got %s", ev.Action)
	}
	if ev.Record.WorkHours != 9 {
		t.Errorf("expected 9 work hours, got %f", ev.Record.WorkHours)
	}
	if ev.Record.Status != store.StatusPresent {
		t.Errorf("a full day stays PRESENT, got %s", ev.Record.Status)
	}
}

func TestCheckedOutIsTerminal(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")
	f.clock.advance(9 * time.Hour)
	f.service.RecordRecognition(ctx, "emp-001")
	before, _ := f.records.Get(ctx, "emp-001", "2025-03-10")

	f.clock.advance(time.Hour)
	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionNone {
		t.Errorf("expected no-op after checkout, got %s", ev.Action)
	}

	after, _ := f.records.Get(ctx, "emp-001", "2025-03-10")
	if !after.CheckOut.Equal(*before.CheckOut) {
		t.Error("checkout time must not move after the day is closed")
	}
}

func TestShortDayBecomesHalfDay(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")
	f.clock.advance(3 * time.Hour)
	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Record.Status != store.StatusHalfDay {
		t.Errorf("expected HALF_DAY for 3 worked hours, got %s", ev.Record.Status)
	}
}

func TestEarlyDepartureRemark(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")
	// Checkout at 16:00, standard 18:00 minus 15 minutes threshold.
	f.clock.advance(7 * time.Hour)
	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Record.Remarks != "early departure" {
		t.Errorf("expected early departure remark, got %q", ev.Record.Remarks)
	}
}

func TestCheckoutAfterMidnightClosesPreviousDay(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := f.service.RecordRecognition(ctx, "emp-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.clock.advance(4 * time.Hour) // 2025-03-11 01:00
	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionCheckedOut {
		t.Fatalf("expected checked_out, got %s", ev.Action)
	}
	if got := store.DateKey(ev.Record.Date); got != "2025-03-10" {
		t.Errorf("checkout must attach to the check-in date, got %s", got)
	}
	if ev.Record.WorkHours != 4 {
		t.Errorf("duration is absolute elapsed time, got %f", ev.Record.WorkHours)
	}

	if _, err := f.records.Get(ctx, "emp-001", "2025-03-11"); !errors.Is(err, store.ErrNotFound) {
		t.Error("no record must be created for the checkout date")
	}
}

func TestMarkAbsentThenReturn(t *testing.T) {
	f := newFixture(t, at(11, 0))
	ctx := context.Background()

	ev, err := f.service.MarkAbsent(ctx, "emp-001", f.clock.Now(), "not seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionMarkedAbsent {
		t.Fatalf("expected marked_absent, got %s", ev.Action)
	}
	if ev.Record.Status != store.StatusAbsent {
		t.Errorf("expected ABSENT, got %s", ev.Record.Status)
	}

	// A reappearing employee goes through a fresh check-in.
	ev, err = f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionCheckedIn {
		t.Fatalf("expected checked_in, got %s", ev.Action)
	}
	if ev.Record.Status != store.StatusLate {
		t.Errorf("an 11:00 return is LATE, got %s", ev.Record.Status)
	}
}

func TestMarkAbsentDoesNotTouchCheckedInDay(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")
	ev, err := f.service.MarkAbsent(ctx, "emp-001", f.clock.Now(), "scan miss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionNone {
		t.Errorf("a day with a check-in cannot become absent, got %s", ev.Action)
	}
}

func TestOnLeaveBlocksRecognition(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	if _, err := f.service.MarkOnLeave(ctx, "emp-001", f.clock.Now(), "vacation"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev, err := f.service.RecordRecognition(ctx, "emp-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionNone {
		t.Errorf("recognition must not override leave, got %s", ev.Action)
	}
}

func TestCustomHoursOverrideSchedule(t *testing.T) {
	f := newFixture(t, at(9, 30))
	f.employees.Add(store.Employee{
		Key:            "emp-042",
		Name:           "Night Shift",
		Active:         true,
		UseCustomHours: true,
		CustomCheckIn:  "10:00",
		CustomCheckOut: "19:00",
	}, 1)

	ev, err := f.service.RecordRecognition(context.Background(), "emp-042")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Record.Status != store.StatusPresent {
		t.Errorf("9:30 is on time for a 10:00 schedule, got %s", ev.Record.Status)
	}
}

func TestManualCheckInTwiceFails(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	if _, err := f.service.CheckIn(ctx, "emp-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.service.CheckIn(ctx, "emp-001"); err == nil {
		t.Fatal("second manual check-in must fail")
	}

	// The failed attempt must not have checked the employee out.
	rec, _ := f.records.Get(ctx, "emp-001", "2025-03-10")
	if rec.CheckOut != nil {
		t.Error("failed check-in must not mutate the record")
	}
}

func TestManualCheckOutWithoutCheckInFails(t *testing.T) {
	f := newFixture(t, at(17, 0))
	if _, err := f.service.CheckOut(context.Background(), "emp-001"); err == nil {
		t.Fatal("checkout without check-in must fail")
	}
}

func TestAutoCheckOutUsesGivenInstant(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.service.RecordRecognition(ctx, "emp-001")

	missAt := at(14, 30)
	f.clock.advance(7 * time.Hour) // clock is past the miss already
	ev, err := f.service.AutoCheckOut(ctx, "emp-001", missAt, "presence lost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != ActionCheckedOut {
		t.Fatalf("expected checked_out, got %s", ev.Action)
	}
	if !ev.Record.CheckOut.Equal(missAt) {
		t.Errorf("checkout must use the miss instant, got %v", ev.Record.CheckOut)
	}
}

func TestCloseOpenAutoRecords(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.employees.Add(store.Employee{Key: "emp-002", Name: "Petr Svoboda", Active: true}, 1)
	f.service.RecordRecognition(ctx, "emp-001")
	f.service.RecordRecognition(ctx, "emp-002")

	f.clock.advance(8 * time.Hour)
	closed, err := f.service.CloseOpenAutoRecords(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed != 2 {
		t.Errorf("expected 2 closed records, got %d", closed)
	}

	open, _ := f.records.ListOpenAuto(ctx, "2025-03-10")
	if len(open) != 0 {
		t.Errorf("expected no open records left, got %d", len(open))
	}
}

func TestMissingSettingsFailEvaluation(t *testing.T) {
	f := newFixture(t, at(9, 0))
	// Simulate a missing settings row.
	empty := mock.NewSettingsStore(nil)
	service := NewService(f.records, f.employees, empty, f.clock)

	_, err := service.RecordRecognition(context.Background(), "emp-001")
	if !errors.Is(err, store.ErrSettingsMissing) {
		t.Errorf("expected ErrSettingsMissing, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	seed := []store.AttendanceRecord{
		{EmployeeKey: "emp-001", Date: at(0, 0), Status: store.StatusPresent, WorkHours: 8, CheckedOut: true},
		{EmployeeKey: "emp-002", Date: at(0, 0), Status: store.StatusLate, WorkHours: 6, CheckedOut: true},
		{EmployeeKey: "emp-003", Date: at(0, 0), Status: store.StatusAbsent},
		{EmployeeKey: "emp-004", Date: at(0, 0), Status: store.StatusHalfDay, WorkHours: 4, CheckedOut: true},
	}
	for i := range seed {
		if err := f.records.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("could not seed record: %v", err)
		}
	}

	stats, err := f.service.Stats(ctx, "2025-03-10", "2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRecords != 4 {
		t.Errorf("expected 4 records, got %d", stats.TotalRecords)
	}
	if stats.Present != 1 || stats.Late != 1 || stats.Absent != 1 || stats.HalfDay != 1 {
		t.Errorf("unexpected status counts: %+v", stats)
	}
	if stats.TotalWorkHours != 18 {
		t.Errorf("expected 18 total hours, got %f", stats.TotalWorkHours)
	}
	if stats.AverageWorkHours != 6 {
		t.Errorf("expected 6 average hours, got %f", stats.AverageWorkHours)
	}
	if stats.AttendanceRate != 0.75 {
		t.Errorf("expected 0.75 attendance rate, got %f", stats.AttendanceRate)
	}
}
