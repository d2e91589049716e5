package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/ngmihq/ngmi/internal/ai"
	"github.com/ngmihq/ngmi/internal/logger"
	"github.com/ngmihq/ngmi/internal/match"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 45 * time.Second
	defaultMaxLogLength   = 200

	backoffBase = 500 * time.Millisecond
)

var sleep = time.Sleep

// waitFor blocks for d or until ctx is done, whichever comes first.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Evaluator asks Gemini for a verdict on an application, retrying
// transient failures with exponential backoff.
type Evaluator struct {
	generator      contentGenerator
	logger         *zap.Logger
	maxAttempts    int
	attemptTimeout time.Duration
	maxLogLen      int
}

func NewEvaluator(generator contentGenerator, lg *zap.Logger, maxAttempts int, attemptTimeout time.Duration, maxLogLength int) *Evaluator {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		generator:      generator,
		logger:         lg,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		maxLogLen:      maxLogLength,
	}
}

// Evaluate builds the verdict prompt and runs it until a usable response
// arrives or attempts run out. The same inputs build byte-identical
// prompts, so retries never drift from the first attempt.
func (e *Evaluator) Evaluate(ctx context.Context, resumeText, jobDescription string, evidence match.Result) (*ai.Verdict, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, errors.New("resume text is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.New("job description is required")
	}

	prompt := buildPrompt(resumeText, jobDescription, evidence)

	e.logger.Debug("gemini verdict request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := backoffBase << (attempt - 2)
			e.logger.Debug("retrying gemini verdict",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			if err := waitFor(ctx, backoff); err != nil {
				return nil, err
			}
		}

		verdict, err := e.attempt(ctx, prompt)
		if err == nil {
			return verdict, nil
		}

		lastErr = err
		if !retryable(err) {
			return nil, err
		}

		e.logger.Warn("gemini verdict attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("evaluation failed after %d attempts: %w", e.maxAttempts, lastErr)
}

func (e *Evaluator) attempt(ctx context.Context, prompt string) (*ai.Verdict, error) {
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini verdict response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	verdict.Raw = raw

	return verdict, nil
}

// retryable reports whether another attempt could succeed where this one
// failed. Malformed output counts: the model may answer cleanly next time.
func retryable(err error) bool {
	return errors.Is(err, ai.ErrMalformedResponse) || transientError(err)
}

func buildPrompt(resumeText, jobDescription string, evidence match.Result) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME_TEXT}}\n\nJob:\n{{JOB_DESCRIPTION}}\n\nJSON Response:"
	}

	prompt := strings.ReplaceAll(template, "{{RESUME_TEXT}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", jobDescription)
	prompt = strings.ReplaceAll(prompt, "{{MATCH_SCORE}}", strconv.FormatFloat(evidence.Score, 'f', 1, 64))
	prompt = strings.ReplaceAll(prompt, "{{MATCHED_SKILLS}}", skillList(evidence.Matched))
	prompt = strings.ReplaceAll(prompt, "{{MISSING_SKILLS}}", skillList(evidence.Missing))

	return prompt
}

func skillList(skills []string) string {
	if len(skills) == 0 {
		return "none"
	}
	return strings.Join(skills, ", ")
}

func parseVerdict(raw string) (*ai.Verdict, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}

	score := coerceFloat(data["ngmi_score"])
	if math.IsNaN(score) || score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: ngmi_score out of range", ai.ErrMalformedResponse)
	}

	comment := coerceString(data["comment"])
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is missing", ai.ErrMalformedResponse)
	}

	return &ai.Verdict{
		Score:    score,
		Comment:  comment,
		Feedback: coerceString(data["feedback"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
