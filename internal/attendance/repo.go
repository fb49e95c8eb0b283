package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, subject_id, branch_id, faculty_id, semester, date, status, remarks, marked_by, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.SubjectID, &rec.BranchID, &rec.FacultyID,
		&rec.Semester, &rec.Date, &status, &rec.Remarks, &rec.MarkedBy, &rec.CreatedAt, &rec.UpdatedAt)
	rec.Status = Status(status)
	rec.Date = DateOnly(rec.Date)
	return rec, err
}

// FindByKey looks up the single record for (student, subject, date).
func (r *Repository) FindByKey(ctx context.Context, studentID, subjectID string, date time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = $1 AND subject_id = $2 AND date = $3
	`, studentID, subjectID, date)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. A unique-index violation maps to ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, subject_id, branch_id, faculty_id, semester, date, status, remarks, marked_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, rec.ID, rec.StudentID, rec.SubjectID, rec.BranchID, rec.FacultyID, rec.Semester, rec.Date, string(rec.Status), rec.Remarks, rec.MarkedBy)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return rec, nil
}

// Update overwrites the mutable fields of an existing record.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET branch_id = $2, faculty_id = $3, semester = $4, status = $5, remarks = $6, marked_by = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, rec.ID, rec.BranchID, rec.FacultyID, rec.Semester, string(rec.Status), rec.Remarks, rec.MarkedBy)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns records matching the filter, ordered by date descending then
// student id ascending.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		clauses = append(clauses, clause+"$"+strconv.Itoa(len(args)+1))
		args = append(args, val)
	}
	if f.StudentID != "" {
		add("student_id = ", f.StudentID)
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
	if !f.Date.IsZero() {
		add("date = ", f.Date)
	}
	if !f.From.IsZero() {
		add("date >= ", DateOnly(f.From))
	}
	if !f.To.IsZero() {
		add("date <= ", DateOnly(f.To))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, student_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Delete removes a record by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
