package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceRepository provides PostgreSQL-backed attendance record storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `
	id, employee_key, date, check_in, check_out, status, method,
	work_hours, remarks, checked_out, updated_at
`

func scanAttendance(row interface{ Scan(...any) error }, rec *store.AttendanceRecord) error {
	return row.Scan(
		&rec.ID, &rec.EmployeeKey, &rec.Date, &rec.CheckIn, &rec.CheckOut,
		&rec.Status, &rec.Method, &rec.WorkHours, &rec.Remarks,
		&rec.CheckedOut, &rec.UpdatedAt,
	)
}

// Get returns the record for (employeeKey, date).
func (r *AttendanceRepository) Get(ctx context.Context, employeeKey, date string) (*store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	row := r.pool.QueryRow(ctx,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE employee_key = $1 AND date = $2",
		employeeKey, date)
	if err := scanAttendance(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return &rec, nil
}

// Create inserts a new record.
func (r *AttendanceRepository) Create(ctx context.Context, rec *store.AttendanceRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_records
			(employee_key, date, check_in, check_out, status, method, work_hours, remarks, checked_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, updated_at
	`, rec.EmployeeKey, store.DateKey(rec.Date), rec.CheckIn, rec.CheckOut,
		rec.Status, rec.Method, rec.WorkHours, rec.Remarks, rec.CheckedOut,
	).Scan(&rec.ID, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing record.
func (r *AttendanceRepository) Update(ctx context.Context, rec *store.AttendanceRecord) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance_records
		SET check_in = $1, check_out = $2, status = $3, method = $4,
			work_hours = $5, remarks = $6, checked_out = $7, updated_at = NOW()
		WHERE id = $8
	`, rec.CheckIn, rec.CheckOut, rec.Status, rec.Method,
		rec.WorkHours, rec.Remarks, rec.CheckedOut, rec.ID)
	if err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByDate returns all records for one date.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]store.AttendanceRecord, error) {
	return r.list(ctx,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE date = $1 ORDER BY employee_key",
		date)
}

// ListRange returns all records in [from, to] inclusive.
func (r *AttendanceRepository) ListRange(ctx context.Context, from, to string) ([]store.AttendanceRecord, error) {
	return r.list(ctx,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE date BETWEEN $1 AND $2 ORDER BY date, employee_key",
		from, to)
}

// ListOpenAuto returns records for one date with an automatic check-in and
// no check-out yet.
func (r *AttendanceRepository) ListOpenAuto(ctx context.Context, date string) ([]store.AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE date = $1 AND method = $2 AND check_in IS NOT NULL AND NOT checked_out
		ORDER BY employee_key
	`, date, store.MethodAuto)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]store.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		if err := scanAttendance(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}

	return records, nil
}
