package attendance

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("attendance record not found")
	// ErrDuplicate is returned when an insert hits the (student, subject,
	// date) unique index. It signals a lost race, not a fault.
	ErrDuplicate = errors.New("attendance record already exists")
)

// Store persists attendance records. Lists are ordered by date descending,
// then student id ascending.
type Store interface {
	FindByKey(ctx context.Context, studentID, subjectID string, date time.Time) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
