// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

func recordKey(employeeKey, date string) string {
	return employeeKey + "|" + date
}

// EncodingStore is an in-memory implementation of store.EncodingWriter.
type EncodingStore struct {
	mu        sync.RWMutex
	employees *EmployeeStore // for active filtering; optional
	encodings []store.FaceEncoding
	nextID    int64

	// Error injection
	ListActiveError error
	SaveError       error
}

// NewEncodingStore creates an empty encoding store. When employees is not
// nil, ListActive filters out encodings of inactive employees.
func NewEncodingStore(employees *EmployeeStore) *EncodingStore {
	return &EncodingStore{employees: employees}
}

// Add seeds an encoding directly.
func (m *EncodingStore) Add(enc store.FaceEncoding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enc.ID == 0 {
		m.nextID++
		enc.ID = m.nextID
	}
	m.encodings = append(m.encodings, enc)
}

func (m *EncodingStore) ListActive(ctx context.Context) ([]store.FaceEncoding, error) {
	if m.ListActiveError != nil {
		return nil, m.ListActiveError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.FaceEncoding
	for _, enc := range m.encodings {
		if m.employees != nil && !m.employees.isActive(enc.EmployeeKey) {
			continue
		}
		out = append(out, enc)
	}
	return out, nil
}

func (m *EncodingStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.encodings), nil
}

func (m *EncodingStore) Save(ctx context.Context, enc *store.FaceEncoding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if enc.IsPrimary {
		for i := range m.encodings {
			if m.encodings[i].EmployeeKey == enc.EmployeeKey {
				m.encodings[i].IsPrimary = false
			}
		}
	}
	m.nextID++
	enc.ID = m.nextID
	enc.CapturedAt = time.Now()
	m.encodings = append(m.encodings, *enc)
	return nil
}

func (m *EncodingStore) DeleteByEmployee(ctx context.Context, employeeKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.encodings[:0]
	removed := 0
	for _, enc := range m.encodings {
		if enc.EmployeeKey == employeeKey {
			removed++
			continue
		}
		kept = append(kept, enc)
	}
	m.encodings = kept
	return removed, nil
}

// EmployeeStore is an in-memory implementation of store.EmployeeStore.
type EmployeeStore struct {
	mu        sync.RWMutex
	employees map[string]*store.Employee
	encCounts map[string]int
}

// NewEmployeeStore creates an empty employee store.
func NewEmployeeStore() *EmployeeStore {
	return &EmployeeStore{
		employees: make(map[string]*store.Employee),
		encCounts: make(map[string]int),
	}
}

// Add seeds an employee with an encoding count.
func (m *EmployeeStore) Add(emp store.Employee, encodingCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.Key] = &emp
	m.encCounts[emp.Key] = encodingCount
}

func (m *EmployeeStore) isActive(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[key]
	return ok && emp.Active
}

func (m *EmployeeStore) GetByKey(ctx context.Context, key string) (*store.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *emp
	return &cp, nil
}

func (m *EmployeeStore) FindByName(ctx context.Context, name string) (*store.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := store.NormalizeEmployeeName(name)
	for _, emp := range m.employees {
		if emp.Active && store.NormalizeEmployeeName(emp.Name) == want {
			cp := *emp
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *EmployeeStore) ListActive(ctx context.Context) ([]store.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.Employee
	for _, emp := range m.employees {
		if emp.Active {
			cp := *emp
			cp.EncodingCount = m.encCounts[emp.Key]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *EmployeeStore) ListEnrolled(ctx context.Context) ([]store.Employee, error) {
	employees, err := m.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var enrolled []store.Employee
	for _, emp := range employees {
		if emp.EncodingCount > 0 {
			enrolled = append(enrolled, emp)
		}
	}
	return enrolled, nil
}

func (m *EmployeeStore) Create(ctx context.Context, emp *store.Employee) error {
	m.Add(*emp, 0)
	return nil
}

// AttendanceStore is an in-memory implementation of store.AttendanceStore.
type AttendanceStore struct {
	mu      sync.RWMutex
	records map[string]*store.AttendanceRecord
	nextID  int64

	// Error injection
	GetError    error
	CreateError error
	UpdateError error
}

// NewAttendanceStore creates an empty attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{records: make(map[string]*store.AttendanceRecord)}
}

func (m *AttendanceStore) Get(ctx context.Context, employeeKey, date string) (*store.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey(employeeKey, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *AttendanceStore) Create(ctx context.Context, rec *store.AttendanceRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.records[recordKey(rec.EmployeeKey, store.DateKey(rec.Date))] = &cp
	return nil
}

func (m *AttendanceStore) Update(ctx context.Context, rec *store.AttendanceRecord) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(rec.EmployeeKey, store.DateKey(rec.Date))
	if _, ok := m.records[key]; !ok {
		return store.ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *AttendanceStore) ListByDate(ctx context.Context, date string) ([]store.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.AttendanceRecord
	for _, rec := range m.records {
		if store.DateKey(rec.Date) == date {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *AttendanceStore) ListRange(ctx context.Context, from, to string) ([]store.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.AttendanceRecord
	for _, rec := range m.records {
		d := store.DateKey(rec.Date)
		if d >= from && d <= to {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *AttendanceStore) ListOpenAuto(ctx context.Context, date string) ([]store.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.AttendanceRecord
	for _, rec := range m.records {
		if store.DateKey(rec.Date) == date && rec.Method == store.MethodAuto &&
			rec.CheckIn != nil && !rec.CheckedOut {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// PresenceStore is an in-memory implementation of store.PresenceStore.
type PresenceStore struct {
	mu     sync.RWMutex
	rows   map[string]*store.PresenceRow
	nextID int64

	// Error injection
	UpsertError error
}

// NewPresenceStore creates an empty presence store.
func NewPresenceStore() *PresenceStore {
	return &PresenceStore{rows: make(map[string]*store.PresenceRow)}
}

func (m *PresenceStore) Get(ctx context.Context, employeeKey, date string) (*store.PresenceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[recordKey(employeeKey, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *PresenceStore) Upsert(ctx context.Context, row *store.PresenceRow) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == 0 {
		m.nextID++
		row.ID = m.nextID
	}
	row.UpdatedAt = time.Now()
	cp := *row
	m.rows[recordKey(row.EmployeeKey, store.DateKey(row.Date))] = &cp
	return nil
}

func (m *PresenceStore) ListByDate(ctx context.Context, date string) ([]store.PresenceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.PresenceRow
	for _, row := range m.rows {
		if store.DateKey(row.Date) == date {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *PresenceStore) ResetDate(ctx context.Context, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, row := range m.rows {
		if store.DateKey(row.Date) == date {
			delete(m.rows, k)
			removed++
		}
	}
	return removed, nil
}

// SettingsStore is an in-memory implementation of store.SettingsStore.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *store.Settings

	// Error injection
	GetError error
}

// NewSettingsStore creates a settings store seeded with the given settings.
// Pass nil to simulate the missing-configuration condition.
func NewSettingsStore(s *store.Settings) *SettingsStore {
	m := &SettingsStore{}
	if s != nil {
		cp := *s
		m.settings = &cp
	}
	return m
}

func (m *SettingsStore) Get(ctx context.Context) (*store.Settings, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, store.ErrSettingsMissing
	}
	cp := *m.settings
	return &cp, nil
}

func (m *SettingsStore) Put(ctx context.Context, s *store.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now()
	cp := *s
	m.settings = &cp
	return nil
}

// DefaultSettings returns the settings used across tests.
func DefaultSettings() *store.Settings {
	return &store.Settings{
		CheckInTime:       "09:00",
		CheckOutTime:      "18:00",
		LateThresholdMin:  15,
		EarlyThresholdMin: 15,
		HalfDayHours:      4,
		FullDayHours:      8,
		AcceptThreshold:   65,
		RejectThreshold:   100,
		CooldownSeconds:   300,
		PresenceMissLimit: 3,
	}
}
