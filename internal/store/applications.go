package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrActiveApplication is returned when an insert collides with a pending
// or scored application for the same (user, job, resume) triple.
var ErrActiveApplication = errors.New("an active application already exists for this user, job and resume")

const applicationColumns = `id, user_id, job_id, resume_id, status, score, comment, feedback, applied_at, scored_at`

func scanApplication(row rowScanner) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.UserID, &a.JobID, &a.ResumeID, &a.Status, &a.Score, &a.Comment, &a.Feedback, &a.AppliedAt, &a.ScoredAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts a pending application. The partial unique
// index on non-failed rows turns a concurrent duplicate into
// ErrActiveApplication, whichever process it comes from.
func (s *Store) CreateApplication(ctx context.Context, userID, jobID, resumeID int64) (*Application, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO applications (user_id, job_id, resume_id, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING `+applicationColumns,
		userID, jobID, resumeID,
	)

	app, err := scanApplication(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrActiveApplication
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetApplication returns nil without an error when the application does
// not exist.
func (s *Store) GetApplication(ctx context.Context, id int64) (*Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// FindApplication returns the latest non-failed application for the
// triple, nil when there is none. Failed attempts never block a fresh
// one, so they are invisible here.
func (s *Store) FindApplication(ctx context.Context, userID, jobID, resumeID int64) (*Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 AND job_id = $2 AND resume_id = $3 AND status <> 'failed'
		 ORDER BY id DESC LIMIT 1`,
		userID, jobID, resumeID,
	)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

// FindPendingApplication returns the pending application for the triple,
// nil when there is none.
func (s *Store) FindPendingApplication(ctx context.Context, userID, jobID, resumeID int64) (*Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 AND job_id = $2 AND resume_id = $3 AND status = 'pending'
		 ORDER BY id DESC LIMIT 1`,
		userID, jobID, resumeID,
	)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending application: %w", err)
	}
	return app, nil
}

type TransitionParams struct {
	ID       int64
	From     Status
	To       Status
	Score    sql.NullFloat64
	Comment  sql.NullString
	Feedback sql.NullString
}

// TransitionApplication moves an application from one status to another
// and reports whether the row actually moved. The status guard in the
// WHERE clause makes the update atomic: with concurrent callers at most
// one sees true.
func (s *Store) TransitionApplication(ctx context.Context, params TransitionParams) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE applications
		 SET status = $1, score = $2, comment = $3, feedback = $4,
		     scored_at = CASE WHEN $1 = 'scored' THEN now() ELSE scored_at END
		 WHERE id = $5 AND status = $6`,
		params.To, params.Score, params.Comment, params.Feedback, params.ID, params.From,
	)
	if err != nil {
		return false, fmt.Errorf("transition application: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition application: %w", err)
	}
	return affected == 1, nil
}

func (s *Store) ListApplications(ctx context.Context, userID int64) ([]ApplicationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.job_id, a.resume_id, a.status, a.score, a.comment, a.feedback, a.applied_at, a.scored_at,
		        j.title, j.company
		 FROM applications a
		 JOIN jobs j ON j.id = a.job_id
		 WHERE a.user_id = $1
		 ORDER BY a.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []ApplicationRow
	for rows.Next() {
		var r ApplicationRow
		err := rows.Scan(&r.ID, &r.UserID, &r.JobID, &r.ResumeID, &r.Status, &r.Score, &r.Comment, &r.Feedback, &r.AppliedAt, &r.ScoredAt, &r.JobTitle, &r.JobCompany)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SweepStalePending fails every pending application older than cutoff and
// returns the rows it moved. Covers evaluations orphaned by a crashed
// process.
func (s *Store) SweepStalePending(ctx context.Context, cutoff time.Time) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE applications SET status = 'failed'
		 WHERE status = 'pending' AND applied_at < $1
		 RETURNING `+applicationColumns,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("sweep stale applications: %w", err)
	}
	defer rows.Close()

	var swept []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		swept = append(swept, *app)
	}
	return swept, rows.Err()
}
