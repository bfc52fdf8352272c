package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/presence"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

// app holds the wired runtime shared by the serve, watch, scan and enroll
// commands: database repositories, the recognition pipeline and the
// attendance state machine.
type app struct {
	cfg *config.Config

	pool      *postgres.Pool
	encodings *postgres.EncodingRepository
	employees *postgres.EmployeeRepository
	records   *postgres.AttendanceRepository
	presence  *postgres.PresenceRepository
	settings  *postgres.SettingsRepository

	codec   *recognizer.Codec
	gallery *gallery.Gallery
	service *attendance.Service
	tracker *presence.Tracker
	scanner *presence.Scanner
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Recognition.CascadePath == "" {
		return nil, errors.New("CASCADE_PATH environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &app{
		cfg:       cfg,
		pool:      pool,
		encodings: postgres.NewEncodingRepository(pool),
		employees: postgres.NewEmployeeRepository(pool),
		records:   postgres.NewAttendanceRepository(pool),
		presence:  postgres.NewPresenceRepository(pool),
		settings:  postgres.NewSettingsRepository(pool),
	}

	if err := a.seedSettings(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	detector, err := recognizer.NewDetector(cfg.Recognition)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to load face detection cascade: %w", err)
	}
	a.codec = recognizer.NewCodec(detector)

	a.gallery = gallery.New(a.encodings)
	count, err := a.gallery.Reload(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to load encoding gallery: %w", err)
	}
	fmt.Printf("Encoding gallery loaded with %d face encodings\n", count)

	a.service = attendance.NewService(a.records, a.employees, a.settings, nil)
	a.tracker = presence.NewTracker(a.presence, a.records, a.service)
	a.scanner = presence.NewScanner(a.codec, a.gallery, a.employees, a.service, a.tracker, nil,
		cfg.Camera.ScanFrames, time.Duration(cfg.Camera.ScanDelayMS)*time.Millisecond)

	return a, nil
}

func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		fmt.Printf("Error closing database: %v\n", err)
	}
}

// seedSettings writes the embedded attendance defaults into the database on
// first boot. An existing settings row is never touched.
func (a *app) seedSettings(ctx context.Context) error {
	_, err := a.settings.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrSettingsMissing) {
		return fmt.Errorf("failed to read attendance settings: %w", err)
	}

	d := a.cfg.Defaults
	seed := &store.Settings{
		CheckInTime:       d.CheckInTime,
		CheckOutTime:      d.CheckOutTime,
		LateThresholdMin:  d.LateThresholdMin,
		EarlyThresholdMin: d.EarlyThresholdMin,
		HalfDayHours:      d.HalfDayHours,
		FullDayHours:      d.FullDayHours,
		AcceptThreshold:   d.AcceptThreshold,
		RejectThreshold:   d.RejectThreshold,
		CooldownSeconds:   d.CooldownSeconds,
		PresenceMissLimit: d.PresenceMissLimit,
	}
	if err := a.settings.Put(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed attendance settings: %w", err)
	}
	fmt.Printf("Seeded default attendance settings (%s - %s)\n", seed.CheckInTime, seed.CheckOutTime)
	return nil
}

// openSource resolves a frame source: a directory of still images when dir
// is set, otherwise the configured MJPEG camera stream.
func (a *app) openSource(dir string) (camera.Source, error) {
	if dir != "" {
		return camera.NewDirSource(dir)
	}
	if a.cfg.Camera.URL == "" {
		return nil, errors.New("CAMERA_URL environment variable is required (or pass --dir)")
	}
	return camera.NewMJPEGSource(a.cfg.Camera.URL), nil
}
