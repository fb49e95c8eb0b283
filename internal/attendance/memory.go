package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory. It enforces the same (student,
// subject, date) uniqueness as the Postgres index so conflict paths behave
// identically in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Record
	byKey   map[string]string // key -> id
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Record),
		byKey:   make(map[string]string),
		nowFunc: time.Now,
	}
}

func key(studentID, subjectID string, date time.Time) string {
	return studentID + "|" + subjectID + "|" + date.Format("2006-01-02")
}

func (m *MemoryStore) FindByKey(_ context.Context, studentID, subjectID string, date time.Time) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key(studentID, subjectID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.byID[id]
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(rec.StudentID, rec.SubjectID, rec.Date)
	if _, exists := m.byKey[k]; exists {
		return Record{}, ErrDuplicate
	}
	now := m.nowFunc()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.byID[rec.ID] = rec
	m.byKey[k] = rec.ID
	return rec, nil
}

func (m *MemoryStore) Update(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[rec.ID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = m.nowFunc()
	m.byID[rec.ID] = rec
	return rec, nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Record
	for _, rec := range m.byID {
		if !matches(rec, f) {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.After(res[j].Date)
		}
		return res[i].StudentID < res[j].StudentID
	})
	return res, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byKey, key(rec.StudentID, rec.SubjectID, rec.Date))
	return nil
}

func matches(rec Record, f Filter) bool {
	if f.StudentID != "" && rec.StudentID != f.StudentID {
		return false
	}
	if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
		return false
	}
	if f.BranchID != "" && rec.BranchID != f.BranchID {
		return false
	}
	if f.Semester != 0 && rec.Semester != f.Semester {
		return false
	}
	if !f.Date.IsZero() && !rec.Date.Equal(f.Date) {
		return false
	}
	if !f.From.IsZero() && rec.Date.Before(DateOnly(f.From)) {
		return false
	}
	if !f.To.IsZero() && rec.Date.After(DateOnly(f.To)) {
		return false
	}
	return true
}
