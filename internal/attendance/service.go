package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"campus/internal/apperr"
	"campus/internal/metrics"
	"campus/internal/stats"
)

// Status is a plain value, not a state machine: any status may overwrite any
// other.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one attendance mark, unique per (student, subject, date).
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId"`
	BranchID  string    `json:"branchId"`
	FacultyID string    `json:"facultyId"`
	Semester  int       `json:"semester"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	Remarks   string    `json:"remarks"`
	MarkedBy  string    `json:"markedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkInput is one item of a mark batch. The acting faculty is taken from the
// caller, never from the payload.
type MarkInput struct {
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId"`
	BranchID  string    `json:"branchId"`
	Semester  int       `json:"semester"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	Remarks   string    `json:"remarks"`
}

// MarkFailure reports one batch item that could not be applied.
type MarkFailure struct {
	Input  MarkInput `json:"record"`
	Reason string    `json:"error"`
}

// MarkResult carries both successes and per-item failures of a batch.
type MarkResult struct {
	Marked []Record      `json:"marked"`
	Failed []MarkFailure `json:"errors"`
}

// Statistics is the attendance rollup for a record set. Late counts toward
// the attended numerator; that is deliberate policy.
type Statistics struct {
	Total      int            `json:"total"`
	Present    int            `json:"present"`
	Absent     int            `json:"absent"`
	Late       int            `json:"late"`
	Excused    int            `json:"excused"`
	Percentage stats.Decimal2 `json:"percentage"`
}

// SubjectStatistics is a per-subject rollup within a student's attendance.
type SubjectStatistics struct {
	SubjectID string `json:"subjectId"`
	Statistics
}

// Filter narrows attendance queries. Zero values mean "not filtered".
type Filter struct {
	StudentID string
	SubjectID string
	BranchID  string
	Semester  int
	Date      time.Time
	From      time.Time
	To        time.Time
}

// Service is the attendance ledger. All writes go through it.
type Service struct {
	store Store
	mx    *metrics.Metrics
}

// NewService creates a ledger backed by a store.
func NewService(store Store, mx *metrics.Metrics) *Service {
	return &Service{store: store, mx: mx}
}

// DateOnly strips time-of-day; attendance keys are calendar days.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Mark applies a batch of attendance marks. Items are independent: one item's
// failure never aborts the rest. An error is returned only when every item
// failed. Existing records for the same (student, subject, date) key are
// overwritten in place; no history of prior marks is kept.
func (s *Service) Mark(ctx context.Context, actorID string, inputs []MarkInput) (MarkResult, error) {
	start := time.Now()
	defer s.mx.ObserveMarkBatch(start)

	if actorID == "" {
		return MarkResult{}, apperr.Validation("acting faculty is required")
	}
	if len(inputs) == 0 {
		return MarkResult{}, apperr.Validation("attendance data is required")
	}

	var res MarkResult
	for _, in := range inputs {
		rec, err := s.markOne(ctx, actorID, in)
		if err != nil {
			res.Failed = append(res.Failed, MarkFailure{Input: in, Reason: err.Error()})
			continue
		}
		res.Marked = append(res.Marked, rec)
	}

	s.mx.AddMarksApplied(len(res.Marked))
	s.mx.AddMarkFailures(len(res.Failed))

	if len(res.Marked) == 0 {
		return res, apperr.Validation("failed to mark attendance")
	}
	return res, nil
}

func (s *Service) markOne(ctx context.Context, actorID string, in MarkInput) (Record, error) {
	if err := validateMark(in); err != nil {
		return Record{}, err
	}
	date := DateOnly(in.Date)

	existing, err := s.store.FindByKey(ctx, in.StudentID, in.SubjectID, date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, apperr.Internal(err)
	}
	if existing != nil {
		return s.overwrite(ctx, *existing, actorID, in)
	}

	rec := Record{
		ID:        uuid.NewString(),
		StudentID: in.StudentID,
		SubjectID: in.SubjectID,
		BranchID:  in.BranchID,
		FacultyID: actorID,
		Semester:  in.Semester,
		Date:      date,
		Status:    in.Status,
		Remarks:   in.Remarks,
		MarkedBy:  actorID,
	}
	created, err := s.store.Insert(ctx, rec)
	if errors.Is(err, ErrDuplicate) {
		// Lost the insert race against a concurrent marker. The unique index
		// is the authority; re-read and overwrite instead of failing.
		existing, rerr := s.store.FindByKey(ctx, in.StudentID, in.SubjectID, date)
		if rerr != nil || existing == nil {
			return Record{}, apperr.Internal(err)
		}
		return s.overwrite(ctx, *existing, actorID, in)
	}
	if err != nil {
		return Record{}, apperr.Internal(err)
	}
	return created, nil
}

func (s *Service) overwrite(ctx context.Context, rec Record, actorID string, in MarkInput) (Record, error) {
	rec.Status = in.Status
	rec.Remarks = in.Remarks
	rec.Semester = in.Semester
	rec.BranchID = in.BranchID
	rec.FacultyID = actorID
	rec.MarkedBy = actorID
	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		return Record{}, apperr.Internal(err)
	}
	return updated, nil
}

func validateMark(in MarkInput) error {
	var fields []apperr.FieldError
	if in.StudentID == "" {
		fields = append(fields, apperr.FieldError{Field: "studentId", Message: "required"})
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
	if in.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Message: "required"})
	}
	if !in.Status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "must be present, absent, late or excused"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid attendance record", fields...)
	}
	return nil
}

// BySubject lists attendance for one subject, newest date first then student
// ascending.
func (s *Service) BySubject(ctx context.Context, subjectID string, semester int, date time.Time) ([]Record, error) {
	if subjectID == "" {
		return nil, apperr.Validation("subject id is required",
			apperr.FieldError{Field: "subjectId", Message: "required"})
	}
	f := Filter{SubjectID: subjectID, Semester: semester}
	if !date.IsZero() {
		f.Date = DateOnly(date)
	}
	recs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return recs, nil
}

// ByStudent returns one student's records with the attendance rollup.
func (s *Service) ByStudent(ctx context.Context, studentID string, f Filter) ([]Record, Statistics, error) {
	if studentID == "" {
		return nil, Statistics{}, apperr.Validation("student id is required",
			apperr.FieldError{Field: "studentId", Message: "required"})
	}
	f.StudentID = studentID
	recs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, Statistics{}, apperr.Internal(err)
	}
	return recs, Summarize(recs), nil
}

// StudentSummary returns a student's records with per-subject rollups (in
// first-seen subject order) and the overall rollup.
func (s *Service) StudentSummary(ctx context.Context, studentID string, f Filter) ([]Record, []SubjectStatistics, Statistics, error) {
	recs, overall, err := s.ByStudent(ctx, studentID, f)
	if err != nil {
		return nil, nil, Statistics{}, err
	}

	index := map[string]int{}
	var perSubject []SubjectStatistics
	for _, r := range recs {
		i, ok := index[r.SubjectID]
		if !ok {
			i = len(perSubject)
			index[r.SubjectID] = i
			perSubject = append(perSubject, SubjectStatistics{SubjectID: r.SubjectID})
		}
		st := &perSubject[i].Statistics
		st.Total++
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusAbsent:
			st.Absent++
		case StatusLate:
			st.Late++
		case StatusExcused:
			st.Excused++
		}
	}
	for i := range perSubject {
		st := &perSubject[i].Statistics
		st.Percentage = stats.Percentage(st.Present+st.Late, st.Total)
	}
	return recs, perSubject, overall, nil
}

// Report is the unrestricted multi-filter query for administrative reporting.
func (s *Service) Report(ctx context.Context, f Filter) ([]Record, error) {
	recs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return recs, nil
}

// Delete removes a record by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("attendance record not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Summarize computes the attendance rollup for a record set.
func Summarize(records []Record) Statistics {
	statuses := make([]string, len(records))
	for i, r := range records {
		statuses[i] = string(r.Status)
	}
	counts := stats.Tally(statuses)
	st := Statistics{
		Total:   len(records),
		Present: counts[string(StatusPresent)],
		Absent:  counts[string(StatusAbsent)],
		Late:    counts[string(StatusLate)],
		Excused: counts[string(StatusExcused)],
	}
	st.Percentage = stats.Percentage(st.Present+st.Late, st.Total)
	return st
}
