package ai

import (
	"context"
	"errors"

	"github.com/ngmihq/ngmi/internal/match"
)

// Verdict is the model's take on an application. Score runs 0-100 where
// higher means less likely to make it; the model weighs the mechanical
// match evidence but is not bound by any formula over it.
type Verdict struct {
	Score    float64
	Comment  string
	Feedback string
	Raw      string
}

// ErrMalformedResponse marks a generation response that could not be
// parsed into a Verdict. The next attempt may come back well formed, so
// callers treat it as retryable.
var ErrMalformedResponse = errors.New("malformed generation response")

type Evaluator interface {
	Evaluate(ctx context.Context, resumeText, jobDescription string, evidence match.Result) (*Verdict, error)
}

// Band names the range a verdict score falls in.
func Band(score float64) string {
	switch {
	case score < 20:
		return "Certified GMI"
	case score < 40:
		return "Possible W"
	case score < 60:
		return "Borderline NGMI"
	case score < 80:
		return "Very NGMI"
	default:
		return "Utterly NGMI"
	}
}
