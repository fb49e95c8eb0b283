package campaign

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps campaigns in memory for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Campaign
	seq     int
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Campaign), nowFunc: time.Now}
}

func (m *MemoryStore) Insert(_ context.Context, cmp Campaign) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// seq breaks created-at ties so newest-first ordering is stable in tests
	m.seq++
	cmp.CreatedAt = m.nowFunc().Add(time.Duration(m.seq) * time.Microsecond)
	cmp.UpdatedAt = cmp.CreatedAt
	m.byID[cmp.ID] = cmp
	return cmp, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cmp, ok := m.byID[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return cmp, nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Campaign
	for _, cmp := range m.byID {
		if f.IsActive != nil && cmp.IsActive != *f.IsActive {
			continue
		}
		if f.BranchID != "" && cmp.BranchID != f.BranchID {
			continue
		}
		if f.Semester != 0 && cmp.Semester != f.Semester {
			continue
		}
		if f.FacultyID != "" && cmp.FacultyID != f.FacultyID {
			continue
		}
		res = append(res, cmp)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) ListOpen(_ context.Context, branchID string, semester int, now time.Time) ([]Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Campaign
	for _, cmp := range m.byID {
		if cmp.BranchID != branchID || cmp.Semester != semester || !cmp.IsActive {
			continue
		}
		if now.Before(cmp.StartDate) || now.After(cmp.EndDate) {
			continue
		}
		res = append(res, cmp)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].EndDate.Before(res[j].EndDate)
	})
	return res, nil
}

func (m *MemoryStore) ActiveExists(_ context.Context, facultyID, subjectID string, semester int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cmp := range m.byID {
		if cmp.FacultyID == facultyID && cmp.SubjectID == subjectID && cmp.Semester == semester && cmp.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Update(_ context.Context, cmp Campaign) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[cmp.ID]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	cmp.CreatedAt = stored.CreatedAt
	cmp.UpdatedAt = m.nowFunc()
	m.byID[cmp.ID] = cmp
	return cmp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}
