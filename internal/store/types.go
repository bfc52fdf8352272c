package store

import (
	"time"
)

// AttendanceStatus is the daily status of an attendance record.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusLate    AttendanceStatus = "LATE"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusHalfDay AttendanceStatus = "HALF_DAY"
	StatusOnLeave AttendanceStatus = "ON_LEAVE"
)

// CheckinMethod records how a check-in was produced.
type CheckinMethod string

const (
	MethodAuto   CheckinMethod = "AUTO"   // camera recognition
	MethodManual CheckinMethod = "MANUAL" // manual admin action
)

// PresenceState is the automaton state of a presence tracking row.
type PresenceState string

const (
	PresenceNormal         PresenceState = "NORMAL"
	PresenceWarning        PresenceState = "WARNING"
	PresenceAutoAbsent     PresenceState = "AUTO_ABSENT"
	PresenceAutoCheckedOut PresenceState = "AUTO_CHECKED_OUT"
)

// Employee is an enrolled employee. Rows are owned by the enrollment side;
// the attendance engine reads them and never mutates identity fields.
type Employee struct {
	Key        string `json:"key"` // stable external key, e.g. EMP001
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Active     bool   `json:"active"`

	// Optional per-employee working hours overriding the global settings.
	UseCustomHours   bool    `json:"use_custom_hours,omitempty"`
	CustomCheckIn    string  `json:"custom_check_in,omitempty"` // "HH:MM", empty when unset
	CustomCheckOut   string  `json:"custom_check_out,omitempty"`
	CustomFullDayHrs float64 `json:"custom_full_day_hours,omitempty"`
	CustomHalfDayHrs float64 `json:"custom_half_day_hours,omitempty"`

	EncodingCount int `json:"encoding_count"` // populated by ListActive for reporting
}

// FaceEncoding is one stored descriptor for an employee.
type FaceEncoding struct {
	ID          int64     `json:"id"`
	EmployeeKey string    `json:"employee_key"`
	Descriptor  []float32 `json:"-"`
	SourceImage string    `json:"source_image,omitempty"` // capture reference
	CapturedAt  time.Time `json:"captured_at"`
	IsPrimary   bool      `json:"is_primary"`
}

// AttendanceRecord is the single per-(employee, date) attendance row.
// CheckOut, if set, is always >= CheckIn; a record never spans two calendar
// dates even when the checkout happens past midnight.
type AttendanceRecord struct {
	ID          int64            `json:"id"`
	EmployeeKey string           `json:"employee_key"`
	Date        time.Time        `json:"date"` // date only, local midnight
	CheckIn     *time.Time       `json:"check_in,omitempty"`
	CheckOut    *time.Time       `json:"check_out,omitempty"`
	Status      AttendanceStatus `json:"status"`
	Method      CheckinMethod    `json:"method"`
	WorkHours   float64          `json:"work_hours"`
	Remarks     string           `json:"remarks,omitempty"`
	CheckedOut  bool             `json:"checked_out"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Settings is the process-wide attendance configuration. It is read fresh
// per evaluation; changes take effect on the next read.
type Settings struct {
	CheckInTime       string    `json:"check_in_time"` // "HH:MM"
	CheckOutTime      string    `json:"check_out_time"`
	LateThresholdMin  int       `json:"late_threshold_minutes"`
	EarlyThresholdMin int       `json:"early_threshold_minutes"`
	HalfDayHours      float64   `json:"half_day_hours"`
	FullDayHours      float64   `json:"full_day_hours"`
	AcceptThreshold   float64   `json:"accept_threshold"`
	RejectThreshold   float64   `json:"reject_threshold"`
	CooldownSeconds   int       `json:"cooldown_seconds"`
	PresenceMissLimit int       `json:"presence_miss_limit"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PresenceRow tracks consecutive missed detections for one employee and day.
type PresenceRow struct {
	ID          int64         `json:"id"`
	EmployeeKey string        `json:"employee_key"`
	Date        time.Time     `json:"date"` // date only
	ScanCount   int           `json:"scan_count"`
	MissCount   int           `json:"miss_count"`
	State       PresenceState `json:"state"`
	LastSeen    *time.Time    `json:"last_seen,omitempty"`
	LastScan    *time.Time    `json:"last_scan,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
