package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/pgvector/pgvector-go"
)

// EncodingRepository provides PostgreSQL-backed face encoding storage.
type EncodingRepository struct {
	pool *Pool
}

// NewEncodingRepository creates a new PostgreSQL encoding repository.
func NewEncodingRepository(pool *Pool) *EncodingRepository {
	return &EncodingRepository{pool: pool}
}

// ListActive returns all encodings belonging to active employees.
func (r *EncodingRepository) ListActive(ctx context.Context) ([]store.FaceEncoding, error) {
	query := `
		SELECT e.id, e.employee_key, e.descriptor, e.source_image, e.captured_at, e.is_primary
		FROM face_encodings e
		JOIN employees emp ON emp.key = e.employee_key
		WHERE emp.active
		ORDER BY e.employee_key, e.is_primary DESC, e.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", err)
	}
	defer rows.Close()

	var encodings []store.FaceEncoding
	for rows.Next() {
		var enc store.FaceEncoding
		var vec pgvector.Vector
		if err := rows.Scan(&enc.ID, &enc.EmployeeKey, &vec, &enc.SourceImage, &enc.CapturedAt, &enc.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		enc.Descriptor = vec.Slice()
		encodings = append(encodings, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", err)
	}

	return encodings, nil
}

// Count returns the total number of stored encodings.
func (r *EncodingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_encodings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count encodings: %w", err)
	}
	return count, nil
}

// Save stores a new encoding. When primary, demotes the employee's previous
// primary encoding first.
func (r *EncodingRepository) Save(ctx context.Context, enc *store.FaceEncoding) error {
	if len(enc.Descriptor) != DescriptorDim {
		return fmt.Errorf("descriptor has %d dimensions, expected %d", len(enc.Descriptor), DescriptorDim)
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if enc.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			"UPDATE face_encodings SET is_primary = FALSE WHERE employee_key = $1 AND is_primary",
			enc.EmployeeKey,
		); err != nil {
			return fmt.Errorf("demote primary encoding: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO face_encodings (employee_key, descriptor, source_image, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, captured_at
	`, enc.EmployeeKey, pgvector.NewVector(enc.Descriptor), enc.SourceImage, enc.IsPrimary,
	).Scan(&enc.ID, &enc.CapturedAt)
	if err != nil {
		return fmt.Errorf("insert encoding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit encoding: %w", err)
	}
	return nil
}

// DeleteByEmployee removes all encodings of one employee.
func (r *EncodingRepository) DeleteByEmployee(ctx context.Context, employeeKey string) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM face_encodings WHERE employee_key = $1", employeeKey)
	if err != nil {
		return 0, fmt.Errorf("delete encodings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
