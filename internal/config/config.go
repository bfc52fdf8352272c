package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Camera      CameraConfig
	Recognition RecognitionConfig
	Defaults    AttendanceDefaults
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type CameraConfig struct {
	URL          string // MJPEG stream URL (e.g. http://camera:8081/stream)
	FrameStride  int    // Process every Nth frame (default 2)
	ScanFrames   int    // Frames aggregated per presence scan (default 5)
	ScanDelayMS  int    // Delay between presence scan frames in milliseconds (default 400)
}

type RecognitionConfig struct {
	CascadePath string  // Path to the pigo facefinder cascade binary
	MinFaceSize int     // Minimum detectable face size in pixels (default 80)
	MaxFaceSize int     // Maximum detectable face size in pixels (default 640)
	ShiftFactor float64 // Detection window shift as fraction of size (default 0.1)
	ScaleFactor float64 // Detection window scale step (default 1.1)
	MinQuality  float64 // Minimum cascade quality score to keep a detection (default 5.0)
}

// AttendanceDefaults seeds the attendance settings row when the database has
// none yet. The runtime values live in the settings table and are editable
// through the API; these are only the first-boot defaults.
type AttendanceDefaults struct {
	CheckInTime        string  `yaml:"check_in_time"`
	CheckOutTime       string  `yaml:"check_out_time"`
	LateThresholdMin   int     `yaml:"late_threshold_minutes"`
	EarlyThresholdMin  int     `yaml:"early_departure_threshold_minutes"`
	HalfDayHours       float64 `yaml:"half_day_hours"`
	FullDayHours       float64 `yaml:"full_day_hours"`
	AcceptThreshold    float64 `yaml:"accept_threshold"`
	RejectThreshold    float64 `yaml:"reject_threshold"`
	CooldownSeconds    int     `yaml:"cooldown_seconds"`
	PresenceMissLimit  int     `yaml:"presence_miss_limit"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var defaults AttendanceDefaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Camera: CameraConfig{
			URL:         os.Getenv("CAMERA_URL"),
			FrameStride: envInt("CAMERA_FRAME_STRIDE", 2),
			ScanFrames:  envInt("CAMERA_SCAN_FRAMES", 5),
			ScanDelayMS: envInt("CAMERA_SCAN_DELAY_MS", 400),
		},
		Recognition: RecognitionConfig{
			CascadePath: os.Getenv("CASCADE_PATH"),
			MinFaceSize: envInt("FACE_MIN_SIZE", 80),
			MaxFaceSize: envInt("FACE_MAX_SIZE", 640),
			ShiftFactor: envFloat("FACE_SHIFT_FACTOR", 0.1),
			ScaleFactor: envFloat("FACE_SCALE_FACTOR", 1.1),
			MinQuality:  envFloat("FACE_MIN_QUALITY", 5.0),
		},
		Defaults: defaults,
	}
}
