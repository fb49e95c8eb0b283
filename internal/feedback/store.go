package feedback

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no submission matches.
	ErrNotFound = errors.New("feedback submission not found")
	// ErrDuplicate is returned when an insert hits the (student, faculty,
	// subject, semester) unique index.
	ErrDuplicate = errors.New("feedback submission already exists")
)

// Store persists submissions. Lists are ordered newest first.
type Store interface {
	Insert(ctx context.Context, sub Submission) (Submission, error)
	Exists(ctx context.Context, studentID, facultyID, subjectID string, semester int) (bool, error)
	Get(ctx context.Context, id string) (Submission, error)
	List(ctx context.Context, f Filter) ([]Submission, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Submission, error)
	Delete(ctx context.Context, id string) error
}
