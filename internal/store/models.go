package store

import (
	"database/sql"
	"time"
)

// Status is the application lifecycle state. An application starts
// pending, moves to scored on a successful evaluation or to failed on a
// terminal one, and never leaves a terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusScored  Status = "scored"
	StatusFailed  Status = "failed"
)

// ResumeStatus records the extraction outcome. Failed uploads keep their
// row so they show up in listings, but they can never back an
// application.
type ResumeStatus string

const (
	ResumeExtracted ResumeStatus = "extracted"
	ResumeFailed    ResumeStatus = "failed"
)

type Resume struct {
	ID         int64
	UserID     int64
	FileName   string
	ObjectKey  string
	RawText    string
	Status     ResumeStatus
	Skills     []string
	UploadedAt time.Time
}

type Job struct {
	ID             int64
	Title          string
	Company        string
	Description    string
	RequiredSkills []string
	CreatedAt      time.Time
}

type Application struct {
	ID        int64
	UserID    int64
	JobID     int64
	ResumeID  int64
	Status    Status
	Score     sql.NullFloat64
	Comment   sql.NullString
	Feedback  sql.NullString
	AppliedAt time.Time
	ScoredAt  sql.NullTime
}

// ApplicationRow is an Application joined with its job for listings.
type ApplicationRow struct {
	Application
	JobTitle   string
	JobCompany string
}
