package campaign

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Repository persists campaigns in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const campaignColumns = `id, title, description, faculty_id, subject_id, branch_id, semester, start_date, end_date, is_active, allow_anonymous, created_by, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (Campaign, error) {
	var cmp Campaign
	err := row.Scan(&cmp.ID, &cmp.Title, &cmp.Description, &cmp.FacultyID, &cmp.SubjectID,
		&cmp.BranchID, &cmp.Semester, &cmp.StartDate, &cmp.EndDate, &cmp.IsActive,
		&cmp.AllowAnonymous, &cmp.CreatedBy, &cmp.CreatedAt, &cmp.UpdatedAt)
	return cmp, err
}

func (r *Repository) Insert(ctx context.Context, cmp Campaign) (Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO feedback_campaigns (id, title, description, faculty_id, subject_id, branch_id, semester, start_date, end_date, is_active, allow_anonymous, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at
	`, cmp.ID, cmp.Title, cmp.Description, cmp.FacultyID, cmp.SubjectID, cmp.BranchID,
		cmp.Semester, cmp.StartDate, cmp.EndDate, cmp.IsActive, cmp.AllowAnonymous, cmp.CreatedBy)
	if err := row.Scan(&cmp.CreatedAt, &cmp.UpdatedAt); err != nil {
		return Campaign{}, err
	}
	return cmp, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+` FROM feedback_campaigns WHERE id = $1
	`, id)
	cmp, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, err
	}
	return cmp, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM feedback_campaigns`
	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		clauses = append(clauses, clause+"$"+strconv.Itoa(len(args)+1))
		args = append(args, val)
	}
	if f.IsActive != nil {
		add("is_active = ", *f.IsActive)
	}
	if f.BranchID != "" {
		add("branch_id = ", f.BranchID)
	}
	if f.Semester != 0 {
		add("semester = ", f.Semester)
	}
	if f.FacultyID != "" {
		add("faculty_id = ", f.FacultyID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	return r.queryCampaigns(ctx, query, args...)
}

func (r *Repository) ListOpen(ctx context.Context, branchID string, semester int, now time.Time) ([]Campaign, error) {
	return r.queryCampaigns(ctx, `
		SELECT `+campaignColumns+`
		FROM feedback_campaigns
		WHERE branch_id = $1 AND semester = $2 AND is_active = TRUE
			AND start_date <= $3 AND end_date >= $3
		ORDER BY end_date ASC
	`, branchID, semester, now)
}

func (r *Repository) ActiveExists(ctx context.Context, facultyID, subjectID string, semester int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feedback_campaigns
			WHERE faculty_id = $1 AND subject_id = $2 AND semester = $3 AND is_active = TRUE
		)
	`, facultyID, subjectID, semester).Scan(&exists)
	return exists, err
}

func (r *Repository) Update(ctx context.Context, cmp Campaign) (Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE feedback_campaigns
		SET title = $2, description = $3, faculty_id = $4, subject_id = $5, branch_id = $6,
			semester = $7, start_date = $8, end_date = $9, is_active = $10, allow_anonymous = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, cmp.ID, cmp.Title, cmp.Description, cmp.FacultyID, cmp.SubjectID, cmp.BranchID,
		cmp.Semester, cmp.StartDate, cmp.EndDate, cmp.IsActive, cmp.AllowAnonymous)
	if err := row.Scan(&cmp.CreatedAt, &cmp.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return cmp, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback_campaigns WHERE id = $1`, id)
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

func (r *Repository) queryCampaigns(ctx context.Context, query string, args ...any) ([]Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Campaign
	for rows.Next() {
		cmp, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, cmp)
	}
	return res, rows.Err()
}
