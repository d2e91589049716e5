package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS resumes (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	file_name TEXT NOT NULL,
	object_key TEXT NOT NULL DEFAULT '',
	raw_text TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'extracted',
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS skills (
	id BIGSERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS resume_skills (
	resume_id BIGINT NOT NULL REFERENCES resumes(id) ON DELETE CASCADE,
	skill_id BIGINT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
	PRIMARY KEY (resume_id, skill_id)
);

CREATE TABLE IF NOT EXISTS jobs (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_skills (
	job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	skill_id BIGINT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
	PRIMARY KEY (job_id, skill_id)
);

CREATE TABLE IF NOT EXISTS applications (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	resume_id BIGINT NOT NULL REFERENCES resumes(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'scored', 'failed')),
	score DOUBLE PRECISION,
	comment TEXT,
	feedback TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	scored_at TIMESTAMPTZ
);

-- One live application per (user, job, resume): failed rows drop out of
-- the index so a re-apply after failure is allowed.
CREATE UNIQUE INDEX IF NOT EXISTS applications_one_active_per_triple
	ON applications (user_id, job_id, resume_id) WHERE status <> 'failed';

CREATE INDEX IF NOT EXISTS applications_user_idx ON applications (user_id);
CREATE INDEX IF NOT EXISTS resumes_user_idx ON resumes (user_id);
`

// Migrate creates the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
