package postgres

import (
	"context"
	"fmt"
)

// DescriptorDim is the fixed dimension of stored face descriptors: a 4x4
// grid of 59-bin uniform LBP histograms over the normalized face patch.
const DescriptorDim = 944

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *Pool) error {
	// Descriptors are stored as pgvector columns so similar faces can also
	// be inspected with SQL during threshold tuning.
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			key               VARCHAR(50) PRIMARY KEY,
			name              VARCHAR(255) NOT NULL,
			department        VARCHAR(255) NOT NULL DEFAULT '',
			active            BOOLEAN NOT NULL DEFAULT TRUE,
			use_custom_hours  BOOLEAN NOT NULL DEFAULT FALSE,
			custom_check_in   VARCHAR(5) NOT NULL DEFAULT '',
			custom_check_out  VARCHAR(5) NOT NULL DEFAULT '',
			custom_full_day   DOUBLE PRECISION NOT NULL DEFAULT 0,
			custom_half_day   DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_encodings (
			id            BIGSERIAL PRIMARY KEY,
			employee_key  VARCHAR(50) NOT NULL REFERENCES employees(key) ON DELETE CASCADE,
			descriptor    vector(%d) NOT NULL,
			source_image  VARCHAR(255) NOT NULL DEFAULT '',
			is_primary    BOOLEAN NOT NULL DEFAULT FALSE,
			captured_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`, DescriptorDim),
		`CREATE INDEX IF NOT EXISTS face_encodings_employee_idx ON face_encodings(employee_key)`,
		`CREATE TABLE IF NOT EXISTS attendance_settings (
			id                   INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			check_in_time        VARCHAR(5) NOT NULL,
			check_out_time       VARCHAR(5) NOT NULL,
			late_threshold_min   INTEGER NOT NULL,
			early_threshold_min  INTEGER NOT NULL,
			half_day_hours       DOUBLE PRECISION NOT NULL,
			full_day_hours       DOUBLE PRECISION NOT NULL,
			accept_threshold     DOUBLE PRECISION NOT NULL,
			reject_threshold     DOUBLE PRECISION NOT NULL,
			cooldown_seconds     INTEGER NOT NULL,
			presence_miss_limit  INTEGER NOT NULL,
			updated_at           TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id            BIGSERIAL PRIMARY KEY,
			employee_key  VARCHAR(50) NOT NULL REFERENCES employees(key) ON DELETE CASCADE,
			date          DATE NOT NULL,
			check_in      TIMESTAMP WITH TIME ZONE,
			check_out     TIMESTAMP WITH TIME ZONE,
			status        VARCHAR(20) NOT NULL,
			method        VARCHAR(20) NOT NULL DEFAULT 'AUTO',
			work_hours    DOUBLE PRECISION NOT NULL DEFAULT 0,
			remarks       TEXT NOT NULL DEFAULT '',
			checked_out   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at    TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(employee_key, date)
		)`,
		`CREATE INDEX IF NOT EXISTS attendance_records_date_idx ON attendance_records(date)`,
		`CREATE TABLE IF NOT EXISTS presence_tracking (
			id            BIGSERIAL PRIMARY KEY,
			employee_key  VARCHAR(50) NOT NULL REFERENCES employees(key) ON DELETE CASCADE,
			date          DATE NOT NULL,
			scan_count    INTEGER NOT NULL DEFAULT 0,
			miss_count    INTEGER NOT NULL DEFAULT 0,
			state         VARCHAR(20) NOT NULL DEFAULT 'NORMAL',
			last_seen     TIMESTAMP WITH TIME ZONE,
			last_scan     TIMESTAMP WITH TIME ZONE,
			updated_at    TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(employee_key, date)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}

	return nil
}
