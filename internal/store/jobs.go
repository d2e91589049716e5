package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type CreateJobParams struct {
	Title       string
	Company     string
	Description string
	Skills      []string
}

const jobQuery = `
	SELECT j.id, j.title, j.company, j.description, j.created_at,
	       COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}')
	FROM jobs j
	LEFT JOIN job_skills js ON js.job_id = j.id
	LEFT JOIN skills s ON s.id = js.skill_id
`

func (s *Store) CreateJob(ctx context.Context, params CreateJobParams) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	job := &Job{
		Title:          params.Title,
		Company:        params.Company,
		Description:    params.Description,
		RequiredSkills: append([]string{}, params.Skills...),
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO jobs (title, company, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		params.Title, params.Company, params.Description,
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	ids, err := upsertSkills(ctx, tx, params.Skills)
	if err != nil {
		return nil, err
	}
	for _, skillID := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_skills (job_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			job.ID, skillID,
		); err != nil {
			return nil, fmt.Errorf("link job skill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job: %w", err)
	}

	return job, nil
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.CreatedAt, (*pq.StringArray)(&j.RequiredSkills))
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob returns nil without an error when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, jobQuery+` WHERE j.id = $1 GROUP BY j.id`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, jobQuery+` GROUP BY j.id ORDER BY j.id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
