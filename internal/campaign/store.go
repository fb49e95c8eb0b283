package campaign

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no campaign matches.
var ErrNotFound = errors.New("feedback campaign not found")

// Store persists campaigns. List is ordered newest first; ListOpen is ordered
// by end date ascending (soonest-closing first).
type Store interface {
	Insert(ctx context.Context, cmp Campaign) (Campaign, error)
	Get(ctx context.Context, id string) (Campaign, error)
	List(ctx context.Context, f ListFilter) ([]Campaign, error)
	ListOpen(ctx context.Context, branchID string, semester int, now time.Time) ([]Campaign, error)
	ActiveExists(ctx context.Context, facultyID, subjectID string, semester int) (bool, error)
	Update(ctx context.Context, cmp Campaign) (Campaign, error)
	Delete(ctx context.Context, id string) error
}
