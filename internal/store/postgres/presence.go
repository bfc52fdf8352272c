package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// PresenceRepository provides PostgreSQL-backed presence tracking storage.
type PresenceRepository struct {
	pool *Pool
}

// NewPresenceRepository creates a new PostgreSQL presence repository.
func NewPresenceRepository(pool *Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

const presenceColumns = `
	id, employee_key, date, scan_count, miss_count, state, last_seen, last_scan, updated_at
`

func scanPresence(row interface{ Scan(...any) error }, p *store.PresenceRow) error {
	return row.Scan(
		&p.ID, &p.EmployeeKey, &p.Date, &p.ScanCount, &p.MissCount,
		&p.State, &p.LastSeen, &p.LastScan, &p.UpdatedAt,
	)
}

// Get returns the row for (employeeKey, date).
func (r *PresenceRepository) Get(ctx context.Context, employeeKey, date string) (*store.PresenceRow, error) {
	var row store.PresenceRow
	res := r.pool.QueryRow(ctx,
		"SELECT "+presenceColumns+" FROM presence_tracking WHERE employee_key = $1 AND date = $2",
		employeeKey, date)
	if err := scanPresence(res, &row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query presence row: %w", err)
	}
	return &row, nil
}

// Upsert inserts or updates the row for (employeeKey, date).
func (r *PresenceRepository) Upsert(ctx context.Context, row *store.PresenceRow) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO presence_tracking
			(employee_key, date, scan_count, miss_count, state, last_seen, last_scan)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_key, date) DO UPDATE SET
			scan_count = EXCLUDED.scan_count,
			miss_count = EXCLUDED.miss_count,
			state      = EXCLUDED.state,
			last_seen  = EXCLUDED.last_seen,
			last_scan  = EXCLUDED.last_scan,
			updated_at = NOW()
		RETURNING id, updated_at
	`, row.EmployeeKey, store.DateKey(row.Date), row.ScanCount, row.MissCount,
		row.State, row.LastSeen, row.LastScan,
	).Scan(&row.ID, &row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert presence row: %w", err)
	}
	return nil
}

// ListByDate returns all rows for one date.
func (r *PresenceRepository) ListByDate(ctx context.Context, date string) ([]store.PresenceRow, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+presenceColumns+" FROM presence_tracking WHERE date = $1 ORDER BY employee_key",
		date)
	if err != nil {
		return nil, fmt.Errorf("query presence rows: %w", err)
	}
	defer rows.Close()

	var result []store.PresenceRow
	for rows.Next() {
		var row store.PresenceRow
		if err := scanPresence(rows, &row); err != nil {
			return nil, fmt.Errorf("scan presence row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence rows: %w", err)
	}

	return result, nil
}

// ResetDate deletes all rows for one date.
func (r *PresenceRepository) ResetDate(ctx context.Context, date string) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM presence_tracking WHERE date = $1", date)
	if err != nil {
		return 0, fmt.Errorf("reset presence rows: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
