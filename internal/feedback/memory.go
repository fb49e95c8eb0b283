package feedback

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore keeps submissions in memory. It enforces the same (student,
// faculty, subject, semester) uniqueness as the Postgres index.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Submission
	byKey   map[string]string // key -> id
	seq     int
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Submission),
		byKey:   make(map[string]string),
		nowFunc: time.Now,
	}
}

func subKey(studentID, facultyID, subjectID string, semester int) string {
	return studentID + "|" + facultyID + "|" + subjectID + "|" + strconv.Itoa(semester)
}

func (m *MemoryStore) Insert(_ context.Context, sub Submission) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var studentID string
	if sub.StudentID != nil {
		studentID = *sub.StudentID
	}
	k := subKey(studentID, sub.FacultyID, sub.SubjectID, sub.Semester)
	if _, exists := m.byKey[k]; exists {
		return Submission{}, ErrDuplicate
	}
	// seq breaks created-at ties so newest-first ordering is stable in tests
	m.seq++
	sub.CreatedAt = m.nowFunc().Add(time.Duration(m.seq) * time.Microsecond)
	sub.UpdatedAt = sub.CreatedAt
	m.byID[sub.ID] = sub
	m.byKey[k] = sub.ID
	return sub, nil
}

func (m *MemoryStore) Exists(_ context.Context, studentID, facultyID, subjectID string, semester int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byKey[subKey(studentID, facultyID, subjectID, semester)]
	return ok, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.byID[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Submission
	for _, sub := range m.byID {
		if f.StudentID != "" && (sub.StudentID == nil || *sub.StudentID != f.StudentID) {
			continue
		}
		if f.FacultyID != "" && sub.FacultyID != f.FacultyID {
			continue
		}
		if f.SubjectID != "" && sub.SubjectID != f.SubjectID {
			continue
		}
		if f.BranchID != "" && sub.BranchID != f.BranchID {
			continue
		}
		if f.Semester != 0 && sub.Semester != f.Semester {
			continue
		}
		res = append(res, sub)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.byID[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = m.nowFunc()
	m.byID[id] = sub
	return sub, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	var studentID string
	if sub.StudentID != nil {
		studentID = *sub.StudentID
	}
	delete(m.byID, id)
	delete(m.byKey, subKey(studentID, sub.FacultyID, sub.SubjectID, sub.Semester))
	return nil
}
