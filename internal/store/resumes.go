package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrResumeInUse is returned by DeleteResume while a pending application
// still references the resume.
var ErrResumeInUse = errors.New("resume has a pending application")

type CreateResumeParams struct {
	UserID    int64
	FileName  string
	ObjectKey string
	RawText   string
	Status    ResumeStatus
	Skills    []string
}

const resumeQuery = `
	SELECT r.id, r.user_id, r.file_name, r.object_key, r.raw_text, r.status, r.uploaded_at,
	       COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}')
	FROM resumes r
	LEFT JOIN resume_skills rs ON rs.resume_id = r.id
	LEFT JOIN skills s ON s.id = rs.skill_id
`

func (s *Store) CreateResume(ctx context.Context, params CreateResumeParams) (*Resume, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	resume := &Resume{
		UserID:    params.UserID,
		FileName:  params.FileName,
		ObjectKey: params.ObjectKey,
		RawText:   params.RawText,
		Status:    params.Status,
		Skills:    append([]string{}, params.Skills...),
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO resumes (user_id, file_name, object_key, raw_text, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, uploaded_at`,
		params.UserID, params.FileName, params.ObjectKey, params.RawText, params.Status,
	).Scan(&resume.ID, &resume.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert resume: %w", err)
	}

	ids, err := upsertSkills(ctx, tx, params.Skills)
	if err != nil {
		return nil, err
	}
	for _, skillID := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resume_skills (resume_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			resume.ID, skillID,
		); err != nil {
			return nil, fmt.Errorf("link resume skill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resume: %w", err)
	}

	return resume, nil
}

// upsertSkills inserts any new skill names and returns ids for all of
// them. The no-op DO UPDATE makes RETURNING yield the id of an existing
// row too.
func upsertSkills(ctx context.Context, tx *sql.Tx, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO skills (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			name,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert skill %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scanResume(row rowScanner) (*Resume, error) {
	var r Resume
	err := row.Scan(&r.ID, &r.UserID, &r.FileName, &r.ObjectKey, &r.RawText, &r.Status, &r.UploadedAt, (*pq.StringArray)(&r.Skills))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetResume returns nil without an error when the resume does not exist.
func (s *Store) GetResume(ctx context.Context, id int64) (*Resume, error) {
	row := s.db.QueryRowContext(ctx, resumeQuery+` WHERE r.id = $1 GROUP BY r.id`, id)

	resume, err := scanResume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return resume, nil
}

func (s *Store) ListResumes(ctx context.Context, userID int64) ([]Resume, error) {
	rows, err := s.db.QueryContext(ctx, resumeQuery+` WHERE r.user_id = $1 GROUP BY r.id ORDER BY r.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		resumes = append(resumes, *r)
	}
	return resumes, rows.Err()
}

// DeleteResume removes a user's resume and, through cascades, its skill
// links and application history. A resume with a pending application
// cannot be deleted.
func (s *Store) DeleteResume(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var pending bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE resume_id = $1 AND status = 'pending')`,
		id,
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("check pending applications: %w", err)
	}
	if pending {
		return ErrResumeInUse
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resume %d not found for user %d", id, userID)
	}

	return tx.Commit()
}
