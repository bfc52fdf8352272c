package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// EmployeeRepository provides PostgreSQL-backed employee access. Identity
// rows are owned by the enrollment side; the engine only reads them.
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new PostgreSQL employee repository.
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

const employeeColumns = `
	key, name, department, active,
	use_custom_hours, custom_check_in, custom_check_out, custom_full_day, custom_half_day
`

func scanEmployee(row interface{ Scan(...any) error }, emp *store.Employee) error {
	return row.Scan(
		&emp.Key, &emp.Name, &emp.Department, &emp.Active,
		&emp.UseCustomHours, &emp.CustomCheckIn, &emp.CustomCheckOut,
		&emp.CustomFullDayHrs, &emp.CustomHalfDayHrs,
	)
}

// GetByKey returns the employee with the given key.
func (r *EmployeeRepository) GetByKey(ctx context.Context, key string) (*store.Employee, error) {
	var emp store.Employee
	row := r.pool.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE key = $1", key)
	if err := scanEmployee(row, &emp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &emp, nil
}

// FindByName returns the active employee whose normalized name matches the
// given name. Comparison happens on the Go side so SQL stays free of the
// unaccent extension dependency.
func (r *EmployeeRepository) FindByName(ctx context.Context, name string) (*store.Employee, error) {
	want := store.NormalizeEmployeeName(name)

	employees, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		if store.NormalizeEmployeeName(employees[i].Name) == want {
			return &employees[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// ListActive returns active employees ordered by key, with encoding counts.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]store.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `, COUNT(e.id)
		FROM employees emp
		LEFT JOIN face_encodings e ON e.employee_key = emp.key
		WHERE emp.active
		GROUP BY emp.key
		ORDER BY emp.key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []store.Employee
	for rows.Next() {
		var emp store.Employee
		if err := rows.Scan(
			&emp.Key, &emp.Name, &emp.Department, &emp.Active,
			&emp.UseCustomHours, &emp.CustomCheckIn, &emp.CustomCheckOut,
			&emp.CustomFullDayHrs, &emp.CustomHalfDayHrs,
			&emp.EncodingCount,
		); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}

	return employees, nil
}

// ListEnrolled returns active employees that have at least one encoding.
// Presence scans only evaluate these: an employee without enrolled faces can
// never be detected and must not be escalated to absent.
func (r *EmployeeRepository) ListEnrolled(ctx context.Context) ([]store.Employee, error) {
	employees, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	enrolled := employees[:0]
	for _, emp := range employees {
		if emp.EncodingCount > 0 {
			enrolled = append(enrolled, emp)
		}
	}
	return enrolled, nil
}

// Create inserts an employee row.
func (r *EmployeeRepository) Create(ctx context.Context, emp *store.Employee) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO employees (key, name, department, active,
			use_custom_hours, custom_check_in, custom_check_out, custom_full_day, custom_half_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, emp.Key, emp.Name, emp.Department, emp.Active,
		emp.UseCustomHours, emp.CustomCheckIn, emp.CustomCheckOut,
		emp.CustomFullDayHrs, emp.CustomHalfDayHrs)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}
