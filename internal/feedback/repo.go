package feedback

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists submissions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const submissionColumns = `id, campaign_id, student_id, faculty_id, subject_id, branch_id, semester,
	teaching_quality, knowledge_of_subject, communication, punctuality, overall_rating,
	strengths, improvements, additional_comments, is_anonymous, status, created_at, updated_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var sub Submission
	var status string
	err := row.Scan(&sub.ID, &sub.CampaignID, &sub.StudentID, &sub.FacultyID, &sub.SubjectID,
		&sub.BranchID, &sub.Semester, &sub.TeachingQuality, &sub.KnowledgeOfSubject,
		&sub.Communication, &sub.Punctuality, &sub.OverallRating, &sub.Strengths,
		&sub.Improvements, &sub.AdditionalComments, &sub.IsAnonymous, &status,
		&sub.CreatedAt, &sub.UpdatedAt)
	sub.Status = Status(status)
	return sub, err
}

func (r *Repository) Insert(ctx context.Context, sub Submission) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO feedback_submissions (id, campaign_id, student_id, faculty_id, subject_id, branch_id, semester,
			teaching_quality, knowledge_of_subject, communication, punctuality, overall_rating,
			strengths, improvements, additional_comments, is_anonymous, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at
	`, sub.ID, sub.CampaignID, sub.StudentID, sub.FacultyID, sub.SubjectID, sub.BranchID, sub.Semester,
		sub.TeachingQuality, sub.KnowledgeOfSubject, sub.Communication, sub.Punctuality, sub.OverallRating,
		sub.Strengths, sub.Improvements, sub.AdditionalComments, sub.IsAnonymous, string(sub.Status))
	if err := row.Scan(&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Submission{}, ErrDuplicate
		}
		return Submission{}, err
	}
	return sub, nil
}

func (r *Repository) Exists(ctx context.Context, studentID, facultyID, subjectID string, semester int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feedback_submissions
			WHERE student_id = $1 AND faculty_id = $2 AND subject_id = $3 AND semester = $4
		)
	`, studentID, facultyID, subjectID, semester).Scan(&exists)
	return exists, err
}

func (r *Repository) Get(ctx context.Context, id string) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+` FROM feedback_submissions WHERE id = $1
	`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM feedback_submissions`
	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		clauses = append(clauses, clause+"$"+strconv.Itoa(len(args)+1))
		args = append(args, val)
	}
	if f.StudentID != "" {
		add("student_id = ", f.StudentID)
	}
	if f.FacultyID != "" {
		add("faculty_id = ", f.FacultyID)
	}
	if f.SubjectID != "" {
		add("subject_id = ", f.SubjectID)
	}
	if f.BranchID != "" {
		add("branch_id = ", f.BranchID)
	}
	if f.Semester != 0 {
		add("semester = ", f.Semester)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sub)
	}
	return res, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE feedback_submissions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+submissionColumns+`
	`, id, string(status))
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback_submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
