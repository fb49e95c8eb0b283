package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/apperr"
)

type fakeChecker struct {
	submitted map[string]bool
}

func (f fakeChecker) HasSubmitted(_ context.Context, studentID, facultyID, subjectID string, semester int) (bool, error) {
	return f.submitted[studentID+"|"+facultyID+"|"+subjectID], nil
}

func newTestService(subs SubmissionChecker) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, subs, nil), store
}

func createInput() CreateInput {
	return CreateInput{
		Title:     "Mid-semester feedback",
		FacultyID: "fac-1",
		SubjectID: "sub-1",
		BranchID:  "br-1",
		Semester:  3,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(nil)

	cmp, err := svc.Create(context.Background(), "admin-1", createInput())
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.ID)
	assert.True(t, cmp.IsActive)
	assert.True(t, cmp.AllowAnonymous)
	assert.Equal(t, "admin-1", cmp.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, "admin-1", CreateInput{})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("end before start", func(t *testing.T) {
		in := createInput()
		in.StartDate, in.EndDate = in.EndDate, in.StartDate
		_, err := svc.Create(ctx, "admin-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestCreateConflictOnActiveTriple(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	// Same (faculty, subject, semester) while the first is active.
	_, err = svc.Create(ctx, "admin-1", createInput())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// A different subject is fine.
	in := createInput()
	in.SubjectID = "sub-2"
	_, err = svc.Create(ctx, "admin-1", in)
	assert.NoError(t, err)
}

func TestCreateAfterDeactivation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	_, err = svc.ToggleActive(ctx, first.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "admin-1", createInput())
	assert.NoError(t, err)
}

func TestUpdateMergesBeforeValidating(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	cmp, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	t.Run("moving one bound past the other is rejected", func(t *testing.T) {
		bad := cmp.EndDate.Add(24 * time.Hour)
		_, err := svc.Update(ctx, cmp.ID, UpdateInput{StartDate: &bad})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("valid single-field update keeps the rest", func(t *testing.T) {
		title := "End-semester feedback"
		updated, err := svc.Update(ctx, cmp.ID, UpdateInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, cmp.FacultyID, updated.FacultyID)
		assert.Equal(t, cmp.StartDate, updated.StartDate)
	})

	t.Run("emptying the title is rejected", func(t *testing.T) {
		empty := ""
		_, err := svc.Update(ctx, cmp.ID, UpdateInput{Title: &empty})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		title := "x"
		_, err := svc.Update(ctx, "missing", UpdateInput{Title: &title})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestToggleActive(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	cmp, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	off, err := svc.ToggleActive(ctx, cmp.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	on, err := svc.ToggleActive(ctx, cmp.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}

func TestAvailableFor(t *testing.T) {
	checker := fakeChecker{submitted: map[string]bool{
		"stu-1|fac-1|sub-1": true,
	}}
	svc, _ := newTestService(checker)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	// Closes sooner, different faculty; should sort first.
	soon := createInput()
	soon.FacultyID = "fac-2"
	soon.EndDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, "admin-1", soon)
	require.NoError(t, err)

	// Out of window.
	past := createInput()
	past.FacultyID = "fac-3"
	past.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past.EndDate = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, "admin-1", past)
	require.NoError(t, err)

	// Wrong branch.
	other := createInput()
	other.FacultyID = "fac-4"
	other.BranchID = "br-2"
	_, err = svc.Create(ctx, "admin-1", other)
	require.NoError(t, err)

	avail, err := svc.AvailableFor(ctx, "stu-1", "br-1", 3)
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.Equal(t, "fac-2", avail[0].FacultyID)
	assert.False(t, avail[0].HasSubmitted)
	assert.Equal(t, "fac-1", avail[1].FacultyID)
	assert.True(t, avail[1].HasSubmitted)
}

func TestAvailableForRequiresContext(t *testing.T) {
	svc, _ := newTestService(fakeChecker{})

	_, err := svc.AvailableFor(context.Background(), "", "br-1", 3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	cmp, err := svc.Create(ctx, "admin-1", createInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, cmp.ID))

	err = svc.Delete(ctx, cmp.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
