// Package events announces application status changes so other systems
// can follow the pipeline without polling the database.
package events

import "time"

// Event describes one application status change.
type Event struct {
	ApplicationID int64     `json:"application_id"`
	UserID        int64     `json:"user_id"`
	JobID         int64     `json:"job_id"`
	ResumeID      int64     `json:"resume_id"`
	Status        string    `json:"status"`
	Score         *float64  `json:"score,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

type Publisher interface {
	Publish(event Event) error
	Close() error
}

// Noop swallows events. Used when no broker is configured; the pipeline
// treats publishing as best effort either way.
type Noop struct{}

func (Noop) Publish(Event) error { return nil }
func (Noop) Close() error        { return nil }
