// Package pipeline drives an application from submission to its verdict:
// validate the resume and job, record the application, score the skills
// mechanically, ask the model for the final word, and persist the
// outcome.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ngmihq/ngmi/internal/ai"
	"github.com/ngmihq/ngmi/internal/events"
	"github.com/ngmihq/ngmi/internal/logger"
	"github.com/ngmihq/ngmi/internal/match"
	"github.com/ngmihq/ngmi/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrInvalidResume covers a resume that does not exist, belongs to a
	// different user, or failed extraction.
	ErrInvalidResume = errors.New("resume not found, not owned by this user, or failed extraction")

	ErrJobNotFound = errors.New("job posting not found")

	// ErrAlreadyInProgress means a pending evaluation for the same
	// (user, job, resume) exists, in this process or another one.
	ErrAlreadyInProgress = errors.New("an evaluation for this application is already in progress")
)

// PendingPolicy decides what a second Apply for the same triple does
// while the first is still running.
type PendingPolicy string

const (
	// Reject hands the second caller ErrAlreadyInProgress.
	Reject PendingPolicy = "reject"
	// Wait parks the second caller until the first finishes and shares
	// its result.
	Wait PendingPolicy = "wait"
)

type Storage interface {
	GetResume(ctx context.Context, id int64) (*store.Resume, error)
	CreateApplication(ctx context.Context, userID, jobID, resumeID int64) (*store.Application, error)
	TransitionApplication(ctx context.Context, params store.TransitionParams) (bool, error)
	FindApplication(ctx context.Context, userID, jobID, resumeID int64) (*store.Application, error)
	GetApplication(ctx context.Context, id int64) (*store.Application, error)
	SweepStalePending(ctx context.Context, cutoff time.Time) ([]store.Application, error)
}

type JobSource interface {
	GetJob(ctx context.Context, id int64) (*store.Job, error)
}

// Orchestrator runs the application pipeline.
type Orchestrator struct {
	storage   Storage
	jobs      JobSource
	evaluator ai.Evaluator
	publisher events.Publisher
	logger    *zap.Logger
	policy    PendingPolicy
	flights   *flightTable
}

func New(storage Storage, jobs JobSource, evaluator ai.Evaluator, publisher events.Publisher, policy PendingPolicy, lg *zap.Logger) *Orchestrator {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if policy != Wait {
		policy = Reject
	}

	return &Orchestrator{
		storage:   storage,
		jobs:      jobs,
		evaluator: evaluator,
		publisher: publisher,
		logger:    lg,
		policy:    policy,
		flights:   newFlightTable(),
	}
}

// Apply submits a resume against a job for a user and drives the
// application to a verdict. A triple that is already scored comes back as
// is, without a new evaluation. Concurrent calls for the same triple
// share one evaluation: depending on policy the extra callers either
// wait for its result or get ErrAlreadyInProgress. When the evaluation
// fails, the application is returned in its failed state together with
// the error.
func (o *Orchestrator) Apply(ctx context.Context, userID, jobID, resumeID int64) (*store.Application, error) {
	resume, err := o.checkResume(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}

	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	existing, err := o.storage.FindApplication(ctx, userID, jobID, resumeID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if existing != nil && existing.Status == store.StatusScored {
		o.logger.Debug("application already scored", logger.TripleFields(userID, jobID, resumeID)...)
		return existing, nil
	}

	key := triple{userID: userID, jobID: jobID, resumeID: resumeID}
	f, leader := o.flights.begin(key)
	if !leader {
		if o.policy == Wait {
			o.logger.Debug("waiting for in-flight evaluation", logger.TripleFields(userID, jobID, resumeID)...)
			return f.wait(ctx)
		}
		return nil, ErrAlreadyInProgress
	}

	app, err := o.run(ctx, key, resume, job)
	o.flights.finish(key, f, app, err)
	return app, err
}

func (o *Orchestrator) checkResume(ctx context.Context, userID, resumeID int64) (*store.Resume, error) {
	resume, err := o.storage.GetResume(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	if resume == nil || resume.UserID != userID || resume.Status != store.ResumeExtracted {
		return nil, ErrInvalidResume
	}
	return resume, nil
}

func (o *Orchestrator) run(ctx context.Context, key triple, resume *store.Resume, job *store.Job) (*store.Application, error) {
	// Second look now that this goroutine holds the flight: the triple
	// may be owned by another process, or by a crashed run whose row
	// waits for the sweep.
	existing, err := o.storage.FindApplication(ctx, key.userID, key.jobID, key.resumeID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if existing != nil {
		if existing.Status == store.StatusScored {
			return existing, nil
		}
		return nil, ErrAlreadyInProgress
	}

	app, err := o.storage.CreateApplication(ctx, key.userID, key.jobID, key.resumeID)
	if err != nil {
		if errors.Is(err, store.ErrActiveApplication) {
			return nil, ErrAlreadyInProgress
		}
		return nil, fmt.Errorf("create application: %w", err)
	}

	o.publish(app, "")

	evidence := match.Score(resume.Skills, job.RequiredSkills)
	o.logger.Info("application submitted",
		append(logger.TripleFields(key.userID, key.jobID, key.resumeID),
			zap.Int64("application_id", app.ID),
			zap.Float64("match_score", evidence.Score),
			zap.Strings("matched_skills", evidence.Matched),
			zap.Strings("missing_skills", evidence.Missing),
		)...,
	)

	verdict, evalErr := o.evaluator.Evaluate(ctx, resume.RawText, job.Description, evidence)
	if evalErr != nil {
		return o.fail(ctx, app, evalErr)
	}

	return o.score(ctx, app, verdict)
}

func (o *Orchestrator) fail(ctx context.Context, app *store.Application, evalErr error) (*store.Application, error) {
	moved, err := o.storage.TransitionApplication(ctx, store.TransitionParams{
		ID:   app.ID,
		From: store.StatusPending,
		To:   store.StatusFailed,
	})
	if err != nil {
		o.logger.Error("failed to mark application failed",
			zap.Int64("application_id", app.ID),
			zap.Error(err),
		)
	} else if !moved {
		// The sweeper got there first; the row is already failed.
		o.logger.Debug("application was already failed", zap.Int64("application_id", app.ID))
	}

	app.Status = store.StatusFailed
	o.publish(app, evalErr.Error())

	return app, fmt.Errorf("evaluation failed: %w", evalErr)
}

func (o *Orchestrator) score(ctx context.Context, app *store.Application, verdict *ai.Verdict) (*store.Application, error) {
	params := store.TransitionParams{
		ID:      app.ID,
		From:    store.StatusPending,
		To:      store.StatusScored,
		Score:   sql.NullFloat64{Float64: verdict.Score, Valid: true},
		Comment: sql.NullString{String: verdict.Comment, Valid: true},
	}
	if strings.TrimSpace(verdict.Feedback) != "" {
		params.Feedback = sql.NullString{String: verdict.Feedback, Valid: true}
	}

	moved, err := o.storage.TransitionApplication(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("record verdict: %w", err)
	}

	if !moved {
		// The sweep can fail a long-running pending under us. Stored
		// state stays authoritative over the verdict we just got.
		stored, err := o.storage.GetApplication(ctx, app.ID)
		if err != nil {
			return nil, fmt.Errorf("reload application: %w", err)
		}
		if stored == nil {
			return nil, fmt.Errorf("application %d disappeared during evaluation", app.ID)
		}
		o.logger.Warn("application changed state during evaluation",
			zap.Int64("application_id", app.ID),
			zap.String("status", string(stored.Status)),
		)
		return stored, nil
	}

	stored, err := o.storage.GetApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("reload application: %w", err)
	}

	o.publish(stored, "")

	o.logger.Info("application scored",
		zap.Int64("application_id", stored.ID),
		zap.Float64("ngmi_score", verdict.Score),
		zap.String("band", ai.Band(verdict.Score)),
	)

	return stored, nil
}

func (o *Orchestrator) publish(app *store.Application, reason string) {
	publishEvent(o.publisher, o.logger, app, reason)
}

// publishEvent is best effort; a broker outage never fails the pipeline.
func publishEvent(publisher events.Publisher, lg *zap.Logger, app *store.Application, reason string) {
	event := events.Event{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		JobID:         app.JobID,
		ResumeID:      app.ResumeID,
		Status:        string(app.Status),
		Reason:        reason,
		At:            time.Now().UTC(),
	}
	if app.Score.Valid {
		score := app.Score.Float64
		event.Score = &score
	}

	if err := publisher.Publish(event); err != nil {
		lg.Warn("failed to publish application event",
			zap.Int64("application_id", app.ID),
			zap.Error(err),
		)
	}
}

// SweepStale fails every pending application older than olderThan. It
// covers rows orphaned by a crashed process, which would otherwise block
// their triple forever.
func SweepStale(ctx context.Context, storage Storage, publisher events.Publisher, lg *zap.Logger, olderThan time.Duration) (int, error) {
	if publisher == nil {
		publisher = events.Noop{}
	}

	cutoff := time.Now().Add(-olderThan)
	swept, err := storage.SweepStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for i := range swept {
		app := &swept[i]
		lg.Info("swept stale application",
			zap.Int64("application_id", app.ID),
			zap.Time("applied_at", app.AppliedAt),
		)
		publishEvent(publisher, lg, app, "stale pending application swept")
	}

	return len(swept), nil
}
