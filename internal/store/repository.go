package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrSettingsMissing is returned when no attendance settings row exists.
// The attendance-mutating paths treat this as fatal; live recognition may
// continue in display-only mode.
var ErrSettingsMissing = errors.New("attendance settings missing")

// EncodingReader provides read-only access to stored face encodings.
type EncodingReader interface {
	// ListActive returns all encodings belonging to active employees.
	ListActive(ctx context.Context) ([]FaceEncoding, error)
	// Count returns the total number of stored encodings.
	Count(ctx context.Context) (int, error)
}

// EncodingWriter provides write access for the enrollment side.
type EncodingWriter interface {
	EncodingReader

	// Save stores a new encoding. When primary is set, any previous primary
	// encoding of the same employee is demoted.
	Save(ctx context.Context, enc *FaceEncoding) error
	// DeleteByEmployee removes all encodings of one employee.
	DeleteByEmployee(ctx context.Context, employeeKey string) (int, error)
}

// EmployeeStore provides read access to enrolled employees.
type EmployeeStore interface {
	// GetByKey returns the employee with the given key, or ErrNotFound.
	GetByKey(ctx context.Context, key string) (*Employee, error)
	// FindByName returns the active employee whose normalized name matches.
	FindByName(ctx context.Context, name string) (*Employee, error)
	// ListActive returns active employees ordered by key, with encoding counts.
	ListActive(ctx context.Context) ([]Employee, error)
	// ListEnrolled returns active employees that have at least one encoding.
	ListEnrolled(ctx context.Context) ([]Employee, error)
	// Create inserts an employee row (used by enrollment tooling and tests).
	Create(ctx context.Context, emp *Employee) error
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	// Get returns the record for (employeeKey, date), or ErrNotFound.
	Get(ctx context.Context, employeeKey string, date string) (*AttendanceRecord, error)
	// Create inserts a new record.
	Create(ctx context.Context, rec *AttendanceRecord) error
	// Update rewrites the mutable fields of an existing record.
	Update(ctx context.Context, rec *AttendanceRecord) error
	// ListByDate returns all records for one date.
	ListByDate(ctx context.Context, date string) ([]AttendanceRecord, error)
	// ListRange returns all records in [from, to] inclusive.
	ListRange(ctx context.Context, from, to string) ([]AttendanceRecord, error)
	// ListOpenAuto returns records for one date with an automatic check-in
	// and no check-out yet. Used for end-of-watch auto checkout.
	ListOpenAuto(ctx context.Context, date string) ([]AttendanceRecord, error)
}

// PresenceStore persists per-day presence tracking rows.
type PresenceStore interface {
	// Get returns the row for (employeeKey, date), or ErrNotFound.
	Get(ctx context.Context, employeeKey string, date string) (*PresenceRow, error)
	// Upsert inserts or updates the row for (employeeKey, date).
	Upsert(ctx context.Context, row *PresenceRow) error
	// ListByDate returns all rows for one date.
	ListByDate(ctx context.Context, date string) ([]PresenceRow, error)
	// ResetDate deletes all rows for one date, returning the count removed.
	ResetDate(ctx context.Context, date string) (int, error)
}

// SettingsStore persists the single attendance settings row.
type SettingsStore interface {
	// Get returns the settings, or ErrSettingsMissing when absent.
	Get(ctx context.Context) (*Settings, error)
	// Put creates or replaces the settings row.
	Put(ctx context.Context, s *Settings) error
}
