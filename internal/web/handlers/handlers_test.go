package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/presence"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

type stubExtractor struct {
	detections []recognizer.Detection
	err        error
}

func (s *stubExtractor) Extract(_ []byte) ([]recognizer.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detections, nil
}

func (s *stubExtractor) ExtractImage(_ image.Image) ([]recognizer.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detections, nil
}

type fakeSource struct {
	frames int
	served int
}

func (s *fakeSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.served >= s.frames {
		return nil, camera.ErrSourceDrained
	}
	s.served++
	return image.NewGray(image.Rect(0, 0, 32, 32)), nil
}

func (s *fakeSource) Close() error {
	return nil
}

type fixture struct {
	employees *mock.EmployeeStore
	encodings *mock.EncodingStore
	records   *mock.AttendanceStore
	presence  *mock.PresenceStore
	settings  *mock.SettingsStore
	gallery   *gallery.Gallery
	service   *attendance.Service
	tracker   *presence.Tracker
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	employees := mock.NewEmployeeStore()
	employees.Add(store.Employee{Key: "emp-001", Name: "Jana Novakova", Active: true}, 1)

	encodings := mock.NewEncodingStore(nil)
	encodings.Add(store.FaceEncoding{ID: 1, EmployeeKey: "emp-001", Descriptor: []float32{0.1, 0, 0}})

	g := gallery.New(encodings)
	if _, err := g.Reload(context.Background()); err != nil {
		t.Fatalf("could not load gallery: %v", err)
	}

	records := mock.NewAttendanceStore()
	rows := mock.NewPresenceStore()
	settings := mock.NewSettingsStore(mock.DefaultSettings())
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	service := attendance.NewService(records, employees, settings, clock)
	tracker := presence.NewTracker(rows, records, service)

	return &fixture{
		employees: employees,
		encodings: encodings,
		records:   records,
		presence:  rows,
		settings:  settings,
		gallery:   g,
		service:   service,
		tracker:   tracker,
		clock:     clock,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestRecognizeNoFace(t *testing.T) {
	f := newFixture(t)
	h := NewRecognizeHandler(&stubExtractor{}, f.gallery, f.service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", strings.NewReader("frame-bytes"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Faces []FaceMatch `json:"faces"`
	}
	decodeBody(t, rec, &body)
	if len(body.Faces) != 0 {
		t.Errorf("expected no faces, got %d", len(body.Faces))
	}
}

func TestRecognizeInvalidFrame(t *testing.T) {
	f := newFixture(t)
	h := NewRecognizeHandler(&stubExtractor{err: recognizer.ErrInvalidFrame}, f.gallery, f.service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", strings.NewReader("not an image"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRecognizeEmptyBody(t *testing.T) {
	f := newFixture(t)
	h := NewRecognizeHandler(&stubExtractor{}, f.gallery, f.service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRecognizeChecksInAndFeedsRecent(t *testing.T) {
	f := newFixture(t)
	extractor := &stubExtractor{detections: []recognizer.Detection{
		{Region: image.Rect(10, 10, 90, 90), Descriptor: []float32{0.1, 0, 0}},
	}}
	h := NewRecognizeHandler(extractor, f.gallery, f.service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", strings.NewReader("frame-bytes"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Faces []FaceMatch `json:"faces"`
	}
	decodeBody(t, rec, &body)
	if len(body.Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(body.Faces))
	}
	face := body.Faces[0]
	if face.EmployeeKey != "emp-001" || face.Action != string(attendance.ActionCheckedIn) {
		t.Errorf("unexpected face result: %+v", face)
	}
	if face.Region.Width != 80 {
		t.Errorf("unexpected region: %+v", face.Region)
	}

	recentReq := httptest.NewRequest(http.MethodGet, "/api/v1/recognitions", nil)
	recentRec := httptest.NewRecorder()
	h.Recent(recentRec, recentReq)

	var feed struct {
		Recognitions []RecognitionEvent `json:"recognitions"`
	}
	decodeBody(t, recentRec, &feed)
	if len(feed.Recognitions) != 1 || feed.Recognitions[0].EmployeeKey != "emp-001" {
		t.Errorf("unexpected feed: %+v", feed.Recognitions)
	}
}

func TestGalleryReload(t *testing.T) {
	f := newFixture(t)
	h := NewGalleryHandler(f.gallery)

	f.encodings.Add(store.FaceEncoding{ID: 2, EmployeeKey: "emp-001", Descriptor: []float32{0.2, 0, 0}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success   bool `json:"success"`
		Encodings int  `json:"encodings"`
	}
	decodeBody(t, rec, &body)
	if !body.Success || body.Encodings != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAttendanceListInvalidDate(t *testing.T) {
	f := newFixture(t)
	h := NewAttendanceHandler(f.service, f.records)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=yesterday", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestManualCheckInAndOut(t *testing.T) {
	f := newFixture(t)
	h := NewAttendanceHandler(f.service, f.records)

	body := strings.NewReader(`{"employee_key":"emp-001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/checkin", body)
	rec := httptest.NewRecorder()
	h.CheckIn(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Second check-in must conflict.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/attendance/checkin", strings.NewReader(`{"employee_key":"emp-001"}`))
	rec = httptest.NewRecorder()
	h.CheckIn(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	f.clock.now = f.clock.now.Add(8 * time.Hour)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/attendance/checkout", strings.NewReader(`{"employee_key":"emp-001"}`))
	rec = httptest.NewRecorder()
	h.CheckOut(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestManualCheckInUnknownEmployee(t *testing.T) {
	f := newFixture(t)
	h := NewAttendanceHandler(f.service, f.records)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/checkin", strings.NewReader(`{"employee_key":"emp-999"}`))
	rec := httptest.NewRecorder()
	h.CheckIn(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStatsRequiresRange(t *testing.T) {
	f := newFixture(t)
	h := NewAttendanceHandler(f.service, f.records)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)
	h := NewSettingsHandler(f.settings)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	update := `{"check_in_time":"08:30","check_out_time":"17:30","late_threshold_minutes":10,` +
		`"early_threshold_minutes":10,"half_day_hours":4,"full_day_hours":8,` +
		`"accept_threshold":60,"reject_threshold":95,"cooldown_seconds":120,"presence_miss_limit":3}`
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(update))
	rec = httptest.NewRecorder()
	h.Put(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := f.settings.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.CheckInTime != "08:30" || stored.CooldownSeconds != 120 {
		t.Errorf("settings not persisted: %+v", stored)
	}
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t)
	h := NewSettingsHandler(f.settings)

	bad := `{"check_in_time":"nine","check_out_time":"18:00","half_day_hours":4,` +
		`"full_day_hours":8,"accept_threshold":60,"reject_threshold":95,"presence_miss_limit":3}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(bad))
	rec := httptest.NewRecorder()
	h.Put(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEmployeesList(t *testing.T) {
	f := newFixture(t)
	f.employees.Add(store.Employee{Key: "emp-002", Name: "Petr Svoboda", Active: true}, 0)
	h := NewEmployeesHandler(f.employees)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("expected 2 employees, got %d", body.Count)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/employees?enrolled=true", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Errorf("expected 1 enrolled employee, got %d", body.Count)
	}
}

func TestPresenceScanAndBoard(t *testing.T) {
	f := newFixture(t)
	extractor := &stubExtractor{detections: []recognizer.Detection{
		{Descriptor: []float32{0.1, 0, 0}},
	}}
	scanner := presence.NewScanner(extractor, f.gallery, f.employees, f.service, f.tracker, f.clock, 2, 0)
	h := NewPresenceHandler(scanner, f.tracker, func(ctx context.Context) (camera.Source, error) {
		return &fakeSource{frames: 2}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/presence/scan", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary presence.ScanSummary
	decodeBody(t, rec, &summary)
	if len(summary.Results) != 1 || !summary.Results[0].Detected {
		t.Errorf("unexpected summary: %+v", summary)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/presence?date=2025-03-10", nil)
	rec = httptest.NewRecorder()
	h.Board(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var board presence.Board
	decodeBody(t, rec, &board)
	if board.Tracked != 1 || board.Present != 1 {
		t.Errorf("unexpected board: %+v", board)
	}
}
