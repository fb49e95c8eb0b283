package store

import "context"

// schema is applied at startup. Statements are idempotent so repeated boots
// are safe. The two unique indexes are the authority for the one-record-per-key
// invariants; application-level checks only decide between insert and update.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		branch_id  TEXT NOT NULL,
		faculty_id TEXT NOT NULL,
		semester   INT  NOT NULL,
		date       DATE NOT NULL,
		status     TEXT NOT NULL,
		remarks    TEXT NOT NULL DEFAULT '',
		marked_by  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS attendance_records_key
		ON attendance_records (student_id, subject_id, date)`,

	`CREATE TABLE IF NOT EXISTS feedback_campaigns (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		faculty_id      TEXT NOT NULL,
		subject_id      TEXT NOT NULL,
		branch_id       TEXT NOT NULL,
		semester        INT  NOT NULL,
		start_date      TIMESTAMPTZ NOT NULL,
		end_date        TIMESTAMPTZ NOT NULL,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		allow_anonymous BOOLEAN NOT NULL DEFAULT TRUE,
		created_by      TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_campaigns_audience
		ON feedback_campaigns (branch_id, semester, is_active)`,
	`CREATE INDEX IF NOT EXISTS feedback_campaigns_target
		ON feedback_campaigns (faculty_id, subject_id)`,
	`CREATE INDEX IF NOT EXISTS feedback_campaigns_end_date
		ON feedback_campaigns (end_date)`,

	`CREATE TABLE IF NOT EXISTS feedback_submissions (
		id                   TEXT PRIMARY KEY,
		campaign_id          TEXT,
		student_id           TEXT NOT NULL,
		faculty_id           TEXT NOT NULL,
		subject_id           TEXT NOT NULL,
		branch_id            TEXT NOT NULL,
		semester             INT  NOT NULL,
		teaching_quality     INT  NOT NULL,
		knowledge_of_subject INT  NOT NULL,
		communication        INT  NOT NULL,
		punctuality          INT  NOT NULL,
		overall_rating       INT  NOT NULL,
		strengths            TEXT NOT NULL DEFAULT '',
		improvements         TEXT NOT NULL DEFAULT '',
		additional_comments  TEXT NOT NULL DEFAULT '',
		is_anonymous         BOOLEAN NOT NULL DEFAULT FALSE,
		status               TEXT NOT NULL DEFAULT 'submitted',
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS feedback_submissions_key
		ON feedback_submissions (student_id, faculty_id, subject_id, semester)`,
}

// Migrate bootstraps the schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
