package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// SettingsRepository provides PostgreSQL-backed attendance settings storage.
// There is exactly one settings row (id = 1).
type SettingsRepository struct {
	pool *Pool
}

// NewSettingsRepository creates a new PostgreSQL settings repository.
func NewSettingsRepository(pool *Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the settings row, or store.ErrSettingsMissing when absent.
func (r *SettingsRepository) Get(ctx context.Context) (*store.Settings, error) {
	var s store.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT check_in_time, check_out_time, late_threshold_min, early_threshold_min,
			half_day_hours, full_day_hours, accept_threshold, reject_threshold,
			cooldown_seconds, presence_miss_limit, updated_at
		FROM attendance_settings WHERE id = 1
	`).Scan(
		&s.CheckInTime, &s.CheckOutTime, &s.LateThresholdMin, &s.EarlyThresholdMin,
		&s.HalfDayHours, &s.FullDayHours, &s.AcceptThreshold, &s.RejectThreshold,
		&s.CooldownSeconds, &s.PresenceMissLimit, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSettingsMissing
		}
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return &s, nil
}

// Put creates or replaces the settings row.
func (r *SettingsRepository) Put(ctx context.Context, s *store.Settings) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_settings
			(id, check_in_time, check_out_time, late_threshold_min, early_threshold_min,
			 half_day_hours, full_day_hours, accept_threshold, reject_threshold,
			 cooldown_seconds, presence_miss_limit)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			check_in_time       = EXCLUDED.check_in_time,
			check_out_time      = EXCLUDED.check_out_time,
			late_threshold_min  = EXCLUDED.late_threshold_min,
			early_threshold_min = EXCLUDED.early_threshold_min,
			half_day_hours      = EXCLUDED.half_day_hours,
			full_day_hours      = EXCLUDED.full_day_hours,
			accept_threshold    = EXCLUDED.accept_threshold,
			reject_threshold    = EXCLUDED.reject_threshold,
			cooldown_seconds    = EXCLUDED.cooldown_seconds,
			presence_miss_limit = EXCLUDED.presence_miss_limit,
			updated_at          = NOW()
		RETURNING updated_at
	`, s.CheckInTime, s.CheckOutTime, s.LateThresholdMin, s.EarlyThresholdMin,
		s.HalfDayHours, s.FullDayHours, s.AcceptThreshold, s.RejectThreshold,
		s.CooldownSeconds, s.PresenceMissLimit,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
