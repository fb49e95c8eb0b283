package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/apperr"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func markInput(studentID string, status Status) MarkInput {
	return MarkInput{
		StudentID: studentID,
		SubjectID: "sub-1",
		BranchID:  "br-1",
		Semester:  3,
		Date:      day("2026-02-10"),
		Status:    status,
	}
}

func TestMarkCreatesRecord(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	res, err := svc.Mark(context.Background(), "fac-1", []MarkInput{markInput("stu-1", StatusPresent)})
	require.NoError(t, err)
	require.Len(t, res.Marked, 1)
	assert.Empty(t, res.Failed)

	rec := res.Marked[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "fac-1", rec.FacultyID)
	assert.Equal(t, "fac-1", rec.MarkedBy)
	assert.Equal(t, StatusPresent, rec.Status)
	assert.Equal(t, day("2026-02-10"), rec.Date)
}

func TestMarkOverwritesSameKey(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	first, err := svc.Mark(ctx, "fac-1", []MarkInput{markInput("stu-1", StatusPresent)})
	require.NoError(t, err)

	second, err := svc.Mark(ctx, "fac-2", []MarkInput{markInput("stu-1", StatusAbsent)})
	require.NoError(t, err)
	require.Len(t, second.Marked, 1)

	// Same record id, new status and marker; no second row.
	assert.Equal(t, first.Marked[0].ID, second.Marked[0].ID)
	assert.Equal(t, StatusAbsent, second.Marked[0].Status)
	assert.Equal(t, "fac-2", second.Marked[0].MarkedBy)

	recs, err := store.List(ctx, Filter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMarkNormalizesDateToDay(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	in := markInput("stu-1", StatusPresent)
	in.Date = time.Date(2026, 2, 10, 14, 35, 12, 0, time.UTC)
	res, err := svc.Mark(context.Background(), "fac-1", []MarkInput{in})
	require.NoError(t, err)
	assert.Equal(t, day("2026-02-10"), res.Marked[0].Date)
}

func TestMarkBatchPartialFailure(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	bad := markInput("stu-2", Status("loitering"))
	res, err := svc.Mark(context.Background(), "fac-1", []MarkInput{
		markInput("stu-1", StatusPresent),
		bad,
	})
	require.NoError(t, err)
	assert.Len(t, res.Marked, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "stu-2", res.Failed[0].Input.StudentID)
	assert.Contains(t, res.Failed[0].Reason, "invalid attendance record")
}

func TestMarkAllFailed(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	res, err := svc.Mark(context.Background(), "fac-1", []MarkInput{
		{StudentID: "stu-1"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, res.Marked)
	assert.Len(t, res.Failed, 1)
}

func TestMarkEmptyBatch(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	_, err := svc.Mark(context.Background(), "fac-1", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// raceStore hides an existing record from the initial lookup so the insert
// collides with the unique key, the way a concurrent marker would.
type raceStore struct {
	*MemoryStore
	misses int
}

func (r *raceStore) FindByKey(ctx context.Context, studentID, subjectID string, date time.Time) (*Record, error) {
	if r.misses > 0 {
		r.misses--
		return nil, ErrNotFound
	}
	return r.MemoryStore.FindByKey(ctx, studentID, subjectID, date)
}

func TestMarkInsertRaceOverwrites(t *testing.T) {
	store := &raceStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Mark(ctx, "fac-1", []MarkInput{markInput("stu-1", StatusPresent)})
	require.NoError(t, err)

	store.misses = 1
	res, err := svc.Mark(ctx, "fac-2", []MarkInput{markInput("stu-1", StatusLate)})
	require.NoError(t, err)
	require.Len(t, res.Marked, 1)
	assert.Equal(t, StatusLate, res.Marked[0].Status)

	recs, err := store.List(ctx, Filter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestBySubjectRequiresSubject(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	_, err := svc.BySubject(context.Background(), "", 0, time.Time{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestStudentSummary(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()

	mark := func(subjectID, date string, status Status) {
		in := markInput("stu-1", status)
		in.SubjectID = subjectID
		in.Date = day(date)
		_, err := svc.Mark(ctx, "fac-1", []MarkInput{in})
		require.NoError(t, err)
	}
	mark("sub-1", "2026-02-09", StatusPresent)
	mark("sub-1", "2026-02-10", StatusLate)
	mark("sub-1", "2026-02-11", StatusAbsent)
	mark("sub-2", "2026-02-11", StatusExcused)

	recs, perSubject, overall, err := svc.StudentSummary(ctx, "stu-1", Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	require.Len(t, perSubject, 2)
	bySubject := map[string]SubjectStatistics{}
	for _, st := range perSubject {
		bySubject[st.SubjectID] = st
	}

	// Late counts as attended: (1 present + 1 late) / 3.
	sub1 := bySubject["sub-1"]
	assert.Equal(t, 3, sub1.Total)
	assert.Equal(t, 1, sub1.Present)
	assert.Equal(t, 1, sub1.Late)
	assert.Equal(t, 1, sub1.Absent)
	assert.InDelta(t, 66.67, float64(sub1.Percentage), 0.001)

	sub2 := bySubject["sub-2"]
	assert.Equal(t, 1, sub2.Excused)
	assert.InDelta(t, 0, float64(sub2.Percentage), 0.001)

	assert.Equal(t, 4, overall.Total)
	assert.InDelta(t, 50, float64(overall.Percentage), 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	st := Summarize(nil)
	assert.Equal(t, 0, st.Total)
	assert.InDelta(t, 0, float64(st.Percentage), 0.001)
}

func TestDeleteNotFound(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
