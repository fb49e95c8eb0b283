// Package campaign owns feedback campaign windows: time-bounded invitations
// for students of a branch/semester to rate a faculty member on a subject.
package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campus/internal/apperr"
	"campus/internal/metrics"
)

// Campaign is one feedback window.
type Campaign struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FacultyID      string    `json:"facultyId"`
	SubjectID      string    `json:"subjectId"`
	BranchID       string    `json:"branchId"`
	Semester       int       `json:"semester"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	IsActive       bool      `json:"isActive"`
	AllowAnonymous bool      `json:"allowAnonymous"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateInput carries the fields an administrator supplies at creation.
type CreateInput struct {
	Title          string
	Description    string
	FacultyID      string
	SubjectID      string
	BranchID       string
	Semester       int
	StartDate      time.Time
	EndDate        time.Time
	AllowAnonymous *bool
}

// UpdateInput is a partial update; nil pointers leave the stored value alone.
type UpdateInput struct {
	Title          *string
	Description    *string
	FacultyID      *string
	SubjectID      *string
	BranchID       *string
	Semester       *int
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       *bool
	AllowAnonymous *bool
}

// ListFilter narrows campaign listings.
type ListFilter struct {
	IsActive  *bool
	BranchID  string
	Semester  int
	FacultyID string
}

// Available is a campaign open to a student, annotated with whether that
// student already submitted for its (faculty, subject, semester).
type Available struct {
	Campaign
	HasSubmitted bool `json:"hasSubmitted"`
}

// SubmissionChecker reports whether a student has already submitted feedback
// for a key. Implemented by the feedback store; the registry only reads it.
type SubmissionChecker interface {
	HasSubmitted(ctx context.Context, studentID, facultyID, subjectID string, semester int) (bool, error)
}

// Service is the campaign registry.
type Service struct {
	store Store
	subs  SubmissionChecker
	mx    *metrics.Metrics
	now   func() time.Time
}

// NewService creates a registry. subs may be nil only when AvailableFor is
// never called (admin-only deployments).
func NewService(store Store, subs SubmissionChecker, mx *metrics.Metrics) *Service {
	return &Service{store: store, subs: subs, mx: mx, now: time.Now}
}

// Create validates and stores a new campaign. It rejects a second active
// campaign for the same (faculty, subject, semester).
//
// The conflict check is check-then-act with no storage backstop: two
// concurrent creates for the same triple can both pass it. Known limitation.
func (s *Service) Create(ctx context.Context, createdBy string, in CreateInput) (Campaign, error) {
	var fields []apperr.FieldError
	if in.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "required"})
	}
	if in.FacultyID == "" {
		fields = append(fields, apperr.FieldError{Field: "facultyId", Message: "required"})
	}
	if in.SubjectID == "" {
		fields = append(fields, apperr.FieldError{Field: "subjectId", Message: "required"})
	}
	if in.BranchID == "" {
		fields = append(fields, apperr.FieldError{Field: "branchId", Message: "required"})
	}
	if in.Semester < 1 || in.Semester > 8 {
		fields = append(fields, apperr.FieldError{Field: "semester", Message: "must be between 1 and 8"})
	}
	if in.StartDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "startDate", Message: "required"})
	}
	if in.EndDate.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "endDate", Message: "required"})
	}
	if len(fields) > 0 {
		return Campaign{}, apperr.Validation("all required fields must be provided", fields...)
	}
	if !in.EndDate.After(in.StartDate) {
		return Campaign{}, apperr.Validation("end date must be after start date",
			apperr.FieldError{Field: "endDate", Message: "must be after startDate"})
	}

	exists, err := s.store.ActiveExists(ctx, in.FacultyID, in.SubjectID, in.Semester)
	if err != nil {
		return Campaign{}, apperr.Internal(err)
	}
	if exists {
		s.mx.IncCampaignConflicts()
		return Campaign{}, apperr.Conflict("an active feedback campaign already exists for this faculty, subject, and semester")
	}

	allowAnonymous := true
	if in.AllowAnonymous != nil {
		allowAnonymous = *in.AllowAnonymous
	}
	cmp := Campaign{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Description:    in.Description,
		FacultyID:      in.FacultyID,
		SubjectID:      in.SubjectID,
		BranchID:       in.BranchID,
		Semester:       in.Semester,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		IsActive:       true,
		AllowAnonymous: allowAnonymous,
		CreatedBy:      createdBy,
	}
	created, err := s.store.Insert(ctx, cmp)
	if err != nil {
		return Campaign{}, apperr.Internal(err)
	}
	s.mx.IncCampaignsCreated()
	return created, nil
}

// List returns campaigns matching the filter, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Campaign, error) {
	camps, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return camps, nil
}

// Get returns one campaign by id.
func (s *Service) Get(ctx context.Context, id string) (Campaign, error) {
	cmp, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Campaign{}, apperr.NotFound("feedback campaign not found")
	}
	if err != nil {
		return Campaign{}, apperr.Internal(err)
	}
	return cmp, nil
}

// Update applies a partial update. The change is merged onto the stored
// campaign before validation, so the date-ordering invariant is re-checked
// even when only one bound moves. The active-conflict check is not re-run on
// update; changing facultyId/subjectId/semester can therefore coexist with
// another active campaign.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Campaign, error) {
	cmp, err := s.Get(ctx, id)
	if err != nil {
		return Campaign{}, err
	}

	if in.Title != nil {
		cmp.Title = *in.Title
	}
	if in.Description != nil {
		cmp.Description = *in.Description
	}
	if in.FacultyID != nil {
		cmp.FacultyID = *in.FacultyID
	}
	if in.SubjectID != nil {
		cmp.SubjectID = *in.SubjectID
	}
	if in.BranchID != nil {
		cmp.BranchID = *in.BranchID
	}
	if in.Semester != nil {
		cmp.Semester = *in.Semester
	}
	if in.StartDate != nil {
		cmp.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		cmp.EndDate = *in.EndDate
	}
	if in.IsActive != nil {
		cmp.IsActive = *in.IsActive
	}
	if in.AllowAnonymous != nil {
		cmp.AllowAnonymous = *in.AllowAnonymous
	}

	if cmp.Title == "" {
		return Campaign{}, apperr.Validation("title must not be empty",
			apperr.FieldError{Field: "title", Message: "required"})
	}
	if cmp.Semester < 1 || cmp.Semester > 8 {
		return Campaign{}, apperr.Validation("semester must be between 1 and 8",
			apperr.FieldError{Field: "semester", Message: "must be between 1 and 8"})
	}
	if !cmp.EndDate.After(cmp.StartDate) {
		return Campaign{}, apperr.Validation("end date must be after start date",
			apperr.FieldError{Field: "endDate", Message: "must be after startDate"})
	}

	updated, err := s.store.Update(ctx, cmp)
	if errors.Is(err, ErrNotFound) {
		return Campaign{}, apperr.NotFound("feedback campaign not found")
	}
	if err != nil {
		return Campaign{}, apperr.Internal(err)
	}
	return updated, nil
}

// ToggleActive flips the active flag and returns the new state.
func (s *Service) ToggleActive(ctx context.Context, id string) (Campaign, error) {
	cmp, err := s.Get(ctx, id)
	if err != nil {
		return Campaign{}, err
	}
	cmp.IsActive = !cmp.IsActive
	updated, err := s.store.Update(ctx, cmp)
	if err != nil {
		return Campaign{}, apperr.Internal(err)
	}
	return updated, nil
}

// AvailableFor lists the campaigns currently open to a student of the given
// branch and semester, soonest-closing first, each annotated with whether the
// student already submitted. Submission lookups run concurrently.
func (s *Service) AvailableFor(ctx context.Context, studentID, branchID string, semester int) ([]Available, error) {
	if studentID == "" || branchID == "" || semester == 0 {
		return nil, apperr.Validation("student, branch and semester are required")
	}
	camps, err := s.store.ListOpen(ctx, branchID, semester, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}

	out := make([]Available, len(camps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, cmp := range camps {
		i, cmp := i, cmp
		g.Go(func() error {
			submitted, err := s.subs.HasSubmitted(gctx, studentID, cmp.FacultyID, cmp.SubjectID, cmp.Semester)
			if err != nil {
				return err
			}
			out[i] = Available{Campaign: cmp, HasSubmitted: submitted}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Delete removes a campaign by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("feedback campaign not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
