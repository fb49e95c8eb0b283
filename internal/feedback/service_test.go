package feedback

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/apperr"
	"campus/internal/campaign"
)

func testNow() time.Time {
	return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
}

// fixture wires a feedback service against an in-memory campaign registry.
type fixture struct {
	fb    *Service
	camps *campaign.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	camps := campaign.NewService(campaign.NewMemoryStore(), nil, nil)
	fb := NewService(NewMemoryStore(), camps, nil)
	fb.now = testNow
	return fixture{fb: fb, camps: camps}
}

func (f fixture) createCampaign(t *testing.T, start, end time.Time) campaign.Campaign {
	t.Helper()
	cmp, err := f.camps.Create(context.Background(), "admin-1", campaign.CreateInput{
		Title:     "Mid-semester feedback",
		FacultyID: "fac-1",
		SubjectID: "sub-1",
		BranchID:  "br-1",
		Semester:  3,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return cmp
}

func submitInput() SubmitInput {
	return SubmitInput{
		FacultyID:          "fac-1",
		SubjectID:          "sub-1",
		BranchID:           "br-1",
		Semester:           3,
		TeachingQuality:    5,
		KnowledgeOfSubject: 4,
		Communication:      5,
		Punctuality:        4,
		OverallRating:      5,
		Strengths:          "clear explanations",
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	sub, err := f.fb.Submit(context.Background(), "stu-1", submitInput())
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	require.NotNil(t, sub.StudentID)
	assert.Equal(t, "stu-1", *sub.StudentID)
	assert.Equal(t, StatusSubmitted, sub.Status)
	assert.Nil(t, sub.CampaignID)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("missing acting student", func(t *testing.T) {
		_, err := f.fb.Submit(ctx, "", submitInput())
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("rating out of range", func(t *testing.T) {
		in := submitInput()
		in.Punctuality = 6
		_, err := f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("semester out of range", func(t *testing.T) {
		in := submitInput()
		in.Semester = 9
		_, err := f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestSubmitDuplicateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fb.Submit(ctx, "stu-1", submitInput())
	require.NoError(t, err)

	_, err = f.fb.Submit(ctx, "stu-1", submitInput())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Another student is unaffected.
	_, err = f.fb.Submit(ctx, "stu-2", submitInput())
	assert.NoError(t, err)
}

func TestSubmitCampaignChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown campaign", func(t *testing.T) {
		f := newFixture(t)
		in := submitInput()
		in.CampaignID = "missing"
		_, err := f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("within window", func(t *testing.T) {
		f := newFixture(t)
		cmp := f.createCampaign(t, testNow().Add(-24*time.Hour), testNow().Add(24*time.Hour))
		in := submitInput()
		in.CampaignID = cmp.ID
		sub, err := f.fb.Submit(ctx, "stu-1", in)
		require.NoError(t, err)
		require.NotNil(t, sub.CampaignID)
		assert.Equal(t, cmp.ID, *sub.CampaignID)
	})

	t.Run("before window opens", func(t *testing.T) {
		f := newFixture(t)
		cmp := f.createCampaign(t, testNow().Add(24*time.Hour), testNow().Add(48*time.Hour))
		in := submitInput()
		in.CampaignID = cmp.ID
		_, err := f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("after window closes", func(t *testing.T) {
		f := newFixture(t)
		cmp := f.createCampaign(t, testNow().Add(-48*time.Hour), testNow().Add(-24*time.Hour))
		in := submitInput()
		in.CampaignID = cmp.ID
		_, err := f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("deactivated campaign", func(t *testing.T) {
		f := newFixture(t)
		cmp := f.createCampaign(t, testNow().Add(-24*time.Hour), testNow().Add(24*time.Hour))
		_, err := f.camps.ToggleActive(ctx, cmp.ID)
		require.NoError(t, err)
		in := submitInput()
		in.CampaignID = cmp.ID
		_, err = f.fb.Submit(ctx, "stu-1", in)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestForFacultyRedaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	anon := submitInput()
	anon.IsAnonymous = true
	anon.OverallRating = 3
	_, err := f.fb.Submit(ctx, "stu-1", anon)
	require.NoError(t, err)

	named := submitInput()
	named.OverallRating = 5
	_, err = f.fb.Submit(ctx, "stu-2", named)
	require.NoError(t, err)

	view, err := f.fb.ForFaculty(ctx, "fac-1", Filter{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalFeedback)

	var redacted, visible int
	for _, sub := range view.Feedback {
		if sub.StudentID == nil {
			redacted++
		} else {
			visible++
		}
	}
	assert.Equal(t, 1, redacted)
	assert.Equal(t, 1, visible)

	// Averages cover the full set, redaction included: (3+5)/2.
	assert.InDelta(t, 4, float64(view.AverageRatings.OverallRating), 0.001)

	// With includeAnonymous the identity comes back.
	full, err := f.fb.ForFaculty(ctx, "fac-1", Filter{}, true)
	require.NoError(t, err)
	for _, sub := range full.Feedback {
		assert.NotNil(t, sub.StudentID)
	}
}

func TestMyFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fb.Submit(ctx, "stu-1", submitInput())
	require.NoError(t, err)

	other := submitInput()
	other.SubjectID = "sub-2"
	_, err = f.fb.Submit(ctx, "stu-1", other)
	require.NoError(t, err)

	subs, err := f.fb.MyFeedback(ctx, "stu-1", 0, "")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	subs, err = f.fb.MyFeedback(ctx, "stu-1", 0, "sub-2")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-2", subs[0].SubjectID)
}

func TestSummaryForFaculty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("empty set reports nil averages", func(t *testing.T) {
		sum, err := f.fb.SummaryForFaculty(ctx, "fac-1", 0)
		require.NoError(t, err)
		assert.Equal(t, 0, sum.TotalFeedback)
		assert.Nil(t, sum.AverageRatings)

		raw, err := json.Marshal(sum)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"averageRatings":null`)
	})

	t.Run("single submission", func(t *testing.T) {
		_, err := f.fb.Submit(ctx, "stu-1", submitInput())
		require.NoError(t, err)

		in := submitInput()
		in.SubjectID = "sub-2"
		in.OverallRating = 3
		_, err = f.fb.Submit(ctx, "stu-1", in)
		require.NoError(t, err)

		sum, err := f.fb.SummaryForFaculty(ctx, "fac-1", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, sum.TotalFeedback)
		require.NotNil(t, sum.AverageRatings)
		assert.InDelta(t, 4, float64(sum.AverageRatings.OverallRating), 0.001)

		require.Len(t, sum.SubjectBreakdown, 2)
		assert.Equal(t, 1, sum.SubjectBreakdown["sub-1"].Count)
		assert.InDelta(t, 5, float64(sum.SubjectBreakdown["sub-1"].AverageRating), 0.001)
		assert.InDelta(t, 3, float64(sum.SubjectBreakdown["sub-2"].AverageRating), 0.001)
	})
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.fb.Submit(ctx, "stu-1", submitInput())
	require.NoError(t, err)

	updated, err := f.fb.UpdateStatus(ctx, sub.ID, StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, StatusReviewed, updated.Status)

	_, err = f.fb.UpdateStatus(ctx, sub.ID, Status("shredded"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.fb.UpdateStatus(ctx, "missing", StatusArchived)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.fb.Submit(ctx, "stu-1", submitInput())
	require.NoError(t, err)

	require.NoError(t, f.fb.Delete(ctx, sub.ID))

	err = f.fb.Delete(ctx, sub.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Key is freed: the student can submit again after an admin delete.
	_, err = f.fb.Submit(ctx, "stu-1", submitInput())
	assert.NoError(t, err)
}
