// Package feedback owns rating submissions: one per (student, faculty,
// subject, semester), created exactly once by the student.
package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"campus/internal/apperr"
	"campus/internal/campaign"
	"campus/internal/metrics"
	"campus/internal/stats"
)

// Status of a submission; transitions are performed only by administrators.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusReviewed, StatusArchived:
		return true
	}
	return false
}

// Submission is one student's completed rating. StudentID is a pointer so
// anonymous submissions can be redacted in faculty views without dropping the
// row.
type Submission struct {
	ID                 string    `json:"id"`
	CampaignID         *string   `json:"campaignId"`
	StudentID          *string   `json:"studentId"`
	FacultyID          string    `json:"facultyId"`
	SubjectID          string    `json:"subjectId"`
	BranchID           string    `json:"branchId"`
	Semester           int       `json:"semester"`
	TeachingQuality    int       `json:"teachingQuality"`
	KnowledgeOfSubject int       `json:"knowledgeOfSubject"`
	Communication      int       `json:"communication"`
	Punctuality        int       `json:"punctuality"`
	OverallRating      int       `json:"overallRating"`
	Strengths          string    `json:"strengths"`
	Improvements       string    `json:"improvements"`
	AdditionalComments string    `json:"additionalComments"`
	IsAnonymous        bool      `json:"isAnonymous"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// SubmitInput carries a new submission's payload. The acting student is taken
// from the caller.
type SubmitInput struct {
	CampaignID         string
	FacultyID          string
	SubjectID          string
	BranchID           string
	Semester           int
	TeachingQuality    int
	KnowledgeOfSubject int
	Communication      int
	Punctuality        int
	OverallRating      int
	Strengths          string
	Improvements       string
	AdditionalComments string
	IsAnonymous        bool
}

// Averages holds per-dimension rating averages.
type Averages struct {
	TeachingQuality    stats.Decimal2 `json:"teachingQuality"`
	KnowledgeOfSubject stats.Decimal2 `json:"knowledgeOfSubject"`
	Communication      stats.Decimal2 `json:"communication"`
	Punctuality        stats.Decimal2 `json:"punctuality"`
	OverallRating      stats.Decimal2 `json:"overallRating"`
}

// FacultyView is the redacted faculty read of submissions with averages over
// the full (unredacted) set.
type FacultyView struct {
	Feedback       []Submission `json:"feedback"`
	TotalFeedback  int          `json:"totalFeedback"`
	AverageRatings Averages     `json:"averageRatings"`
}

// SubjectSummary is the per-subject slice of a faculty summary.
type SubjectSummary struct {
	Count         int            `json:"count"`
	AverageRating stats.Decimal2 `json:"averageRating"`
}

// Summary is the administrative rollup for one faculty member. AverageRatings
// is nil when no submissions match.
type Summary struct {
	FacultyID        string                    `json:"facultyId"`
	TotalFeedback    int                       `json:"totalFeedback"`
	AverageRatings   *Averages                 `json:"averageRatings"`
	SubjectBreakdown map[string]SubjectSummary `json:"subjectWiseBreakdown,omitempty"`
}

// Filter narrows submission listings.
type Filter struct {
	StudentID string
	FacultyID string
	SubjectID string
	BranchID  string
	Semester  int
}

// CampaignSource resolves a referenced campaign at submission time. The
// feedback store depends on the registry only through this read.
type CampaignSource interface {
	Get(ctx context.Context, id string) (campaign.Campaign, error)
}

// Service is the feedback submission store.
type Service struct {
	store     Store
	campaigns CampaignSource
	mx        *metrics.Metrics
	now       func() time.Time
}

// NewService creates the submission store. campaigns may be nil when
// campaign-linked submissions are disabled.
func NewService(store Store, campaigns CampaignSource, mx *metrics.Metrics) *Service {
	return &Service{store: store, campaigns: campaigns, mx: mx, now: time.Now}
}

// Submit validates and stores a submission for the acting student. When a
// campaign is referenced it must exist, be active, and be within its window.
// A duplicate (student, faculty, subject, semester) is a conflict; the unique
// index backs the check under concurrency.
func (s *Service) Submit(ctx context.Context, studentID string, in SubmitInput) (Submission, error) {
	if studentID == "" {
		return Submission{}, apperr.Validation("acting student is required")
	}
	if err := validateSubmit(in); err != nil {
		return Submission{}, err
	}

	if in.CampaignID != "" {
		cmp, err := s.campaigns.Get(ctx, in.CampaignID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return Submission{}, apperr.NotFound("feedback campaign not found")
			}
			return Submission{}, err
		}
		if !cmp.IsActive {
			return Submission{}, apperr.Validation("this feedback campaign is no longer active")
		}
		now := s.now()
		if now.Before(cmp.StartDate) || now.After(cmp.EndDate) {
			return Submission{}, apperr.Validation("this feedback campaign is not currently available")
		}
	}

	exists, err := s.store.Exists(ctx, studentID, in.FacultyID, in.SubjectID, in.Semester)
	if err != nil {
		return Submission{}, apperr.Internal(err)
	}
	if exists {
		s.mx.IncFeedbackConflicts()
		return Submission{}, apperr.Conflict("feedback already submitted for this faculty and subject")
	}

	sub := Submission{
		ID:                 uuid.NewString(),
		StudentID:          &studentID,
		FacultyID:          in.FacultyID,
		SubjectID:          in.SubjectID,
		BranchID:           in.BranchID,
		Semester:           in.Semester,
		TeachingQuality:    in.TeachingQuality,
		KnowledgeOfSubject: in.KnowledgeOfSubject,
		Communication:      in.Communication,
		Punctuality:        in.Punctuality,
		OverallRating:      in.OverallRating,
		Strengths:          in.Strengths,
		Improvements:       in.Improvements,
		AdditionalComments: in.AdditionalComments,
		IsAnonymous:        in.IsAnonymous,
		Status:             StatusSubmitted,
	}
	if in.CampaignID != "" {
		sub.CampaignID = &in.CampaignID
	}

	created, err := s.store.Insert(ctx, sub)
	if errors.Is(err, ErrDuplicate) {
		// Concurrent duplicate slipped past the existence check; the unique
		// index is the authority.
		s.mx.IncFeedbackConflicts()
		return Submission{}, apperr.Conflict("feedback already submitted for this faculty and subject")
	}
	if err != nil {
		return Submission{}, apperr.Internal(err)
	}
	s.mx.IncFeedbackSubmitted()
	return created, nil
}

func validateSubmit(in SubmitInput) error {
	var fields []apperr.FieldError
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
	ratings := []struct {
		name  string
		value int
	}{
		{"teachingQuality", in.TeachingQuality},
		{"knowledgeOfSubject", in.KnowledgeOfSubject},
		{"communication", in.Communication},
		{"punctuality", in.Punctuality},
		{"overallRating", in.OverallRating},
	}
	for _, r := range ratings {
		if r.value < 1 || r.value > 5 {
			fields = append(fields, apperr.FieldError{Field: r.name, Message: "must be between 1 and 5"})
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid feedback submission", fields...)
	}
	return nil
}

// HasSubmitted reports whether a submission exists for the key. Satisfies
// campaign.SubmissionChecker.
func (s *Service) HasSubmitted(ctx context.Context, studentID, facultyID, subjectID string, semester int) (bool, error) {
	return s.store.Exists(ctx, studentID, facultyID, subjectID, semester)
}

// MyFeedback lists the student's own submissions, newest first.
func (s *Service) MyFeedback(ctx context.Context, studentID string, semester int, subjectID string) ([]Submission, error) {
	if studentID == "" {
		return nil, apperr.Validation("acting student is required")
	}
	subs, err := s.store.List(ctx, Filter{StudentID: studentID, Semester: semester, SubjectID: subjectID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subs, nil
}

// ForFaculty lists submissions addressed to a faculty member with
// dimension-wise averages. When includeAnonymous is false the student
// identity of anonymous submissions is nulled out; averages are computed over
// the full set either way.
func (s *Service) ForFaculty(ctx context.Context, facultyID string, f Filter, includeAnonymous bool) (FacultyView, error) {
	if facultyID == "" {
		return FacultyView{}, apperr.Validation("faculty id is required")
	}
	f.FacultyID = facultyID
	f.StudentID = ""
	f.BranchID = ""
	subs, err := s.store.List(ctx, f)
	if err != nil {
		return FacultyView{}, apperr.Internal(err)
	}

	view := FacultyView{
		TotalFeedback:  len(subs),
		AverageRatings: averages(subs),
	}
	view.Feedback = make([]Submission, len(subs))
	for i, sub := range subs {
		if sub.IsAnonymous && !includeAnonymous {
			sub.StudentID = nil
		}
		view.Feedback[i] = sub
	}
	return view, nil
}

// All is the unrestricted administrative listing, newest first, no redaction.
func (s *Service) All(ctx context.Context, f Filter) ([]Submission, error) {
	f.StudentID = ""
	subs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subs, nil
}

// SummaryForFaculty aggregates one faculty member's feedback. On an empty set
// it reports zero with nil averages instead of dividing.
func (s *Service) SummaryForFaculty(ctx context.Context, facultyID string, semester int) (Summary, error) {
	if facultyID == "" {
		return Summary{}, apperr.Validation("faculty id is required")
	}
	subs, err := s.store.List(ctx, Filter{FacultyID: facultyID, Semester: semester})
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}
	if len(subs) == 0 {
		return Summary{FacultyID: facultyID, TotalFeedback: 0, AverageRatings: nil}, nil
	}

	avg := averages(subs)
	breakdown := make(map[string]SubjectSummary)
	counts := map[string]int{}
	sums := map[string]int{}
	for _, sub := range subs {
		counts[sub.SubjectID]++
		sums[sub.SubjectID] += sub.OverallRating
	}
	for subjectID, count := range counts {
		breakdown[subjectID] = SubjectSummary{
			Count:         count,
			AverageRating: stats.Average(sums[subjectID], count),
		}
	}
	return Summary{
		FacultyID:        facultyID,
		TotalFeedback:    len(subs),
		AverageRatings:   &avg,
		SubjectBreakdown: breakdown,
	}, nil
}

// UpdateStatus moves a submission to the given status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Submission, error) {
	if !status.Valid() {
		return Submission{}, apperr.Validation("invalid status",
			apperr.FieldError{Field: "status", Message: "must be submitted, reviewed or archived"})
	}
	sub, err := s.store.UpdateStatus(ctx, id, status)
	if errors.Is(err, ErrNotFound) {
		return Submission{}, apperr.NotFound("feedback not found")
	}
	if err != nil {
		return Submission{}, apperr.Internal(err)
	}
	return sub, nil
}

// Delete removes a submission by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("feedback not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func averages(subs []Submission) Averages {
	var tq, ks, cm, pu, ov int
	for _, s := range subs {
		tq += s.TeachingQuality
		ks += s.KnowledgeOfSubject
		cm += s.Communication
		pu += s.Punctuality
		ov += s.OverallRating
	}
	n := len(subs)
	return Averages{
		TeachingQuality:    stats.Average(tq, n),
		KnowledgeOfSubject: stats.Average(ks, n),
		Communication:      stats.Average(cm, n),
		Punctuality:        stats.Average(pu, n),
		OverallRating:      stats.Average(ov, n),
	}
}
