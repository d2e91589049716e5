package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ngmihq/ngmi/internal/ai"
	"github.com/ngmihq/ngmi/internal/match"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubGenerator struct {
	mu      sync.Mutex
	queue   []stubResponse
	prompts []string
}

type stubResponse struct {
	text string
	err  error
}

func (s *stubGenerator) enqueue(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, stubResponse{text: text, err: err})
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)

	if len(s.queue) == 0 {
		return "", errors.New("unexpected call")
	}
	res := s.queue[0]
	s.queue = s.queue[1:]
	return res.text, res.err
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func disableSleep(t *testing.T) {
	t.Helper()

	originalSleep := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = originalSleep })
}

var testEvidence = match.Result{
	Score:   66.7,
	Matched: []string{"python", "sql"},
	Missing: []string{"react"},
}

const goodResponse = `{"ngmi_score": 42.1, "comment": "Bold of you to apply.", "feedback": "Learn React before the interview."}`

func TestEvaluateParsesVerdict(t *testing.T) {
	gen := &stubGenerator{}
	gen.enqueue(goodResponse, nil)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	verdict, err := e.Evaluate(context.Background(), "resume text", "job description", testEvidence)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if verdict.Score != 42.1 {
		t.Fatalf("unexpected score: %v", verdict.Score)
	}
	if verdict.Comment != "Bold of you to apply." {
		t.Fatalf("unexpected comment: %q", verdict.Comment)
	}
	if verdict.Feedback != "Learn React before the interview." {
		t.Fatalf("unexpected feedback: %q", verdict.Feedback)
	}
	if verdict.Raw != goodResponse {
		t.Fatalf("unexpected raw: %q", verdict.Raw)
	}

	prompt := gen.prompts[0]
	for _, fragment := range []string{"resume text", "job description", "66.7", "python, sql", "react"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt is missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestEvaluateParsesFencedJSON(t *testing.T) {
	gen := &stubGenerator{}
	gen.enqueue("```json\n"+goodResponse+"\n```", nil)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	verdict, err := e.Evaluate(context.Background(), "resume", "job", testEvidence)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verdict.Score != 42.1 {
		t.Fatalf("unexpected score: %v", verdict.Score)
	}
}

func TestEvaluateRetriesMalformedResponse(t *testing.T) {
	disableSleep(t)

	gen := &stubGenerator{}
	gen.enqueue("the model rambles instead of answering", nil)
	gen.enqueue(goodResponse, nil)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	verdict, err := e.Evaluate(context.Background(), "resume", "job", testEvidence)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verdict.Score != 42.1 {
		t.Fatalf("unexpected score: %v", verdict.Score)
	}
	if gen.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", gen.callCount())
	}
}

func TestEvaluateRetriesTransientError(t *testing.T) {
	disableSleep(t)

	gen := &stubGenerator{}
	gen.enqueue("", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	gen.enqueue("", context.DeadlineExceeded)
	gen.enqueue(goodResponse, nil)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	verdict, err := e.Evaluate(context.Background(), "resume", "job", testEvidence)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verdict.Score != 42.1 {
		t.Fatalf("unexpected score: %v", verdict.Score)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", gen.callCount())
	}
}

func TestEvaluateStopsAfterAttemptsExhausted(t *testing.T) {
	disableSleep(t)

	gen := &stubGenerator{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	gen.enqueue("", tempErr)
	gen.enqueue("", tempErr)
	gen.enqueue("", tempErr)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	_, err := e.Evaluate(context.Background(), "resume", "job", testEvidence)
	if err == nil {
		t.Fatal("expected error after attempts exhausted")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", gen.callCount())
	}
}

func TestEvaluatePermanentErrorFailsFast(t *testing.T) {
	gen := &stubGenerator{}
	gen.enqueue("", genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"})

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	if _, err := e.Evaluate(context.Background(), "resume", "job", testEvidence); err == nil {
		t.Fatal("expected error")
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected single call, got %d", gen.callCount())
	}
}

func TestEvaluateDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	gen := &stubGenerator{}
	gen.enqueue("", genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	if _, err := e.Evaluate(context.Background(), "resume", "job", testEvidence); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected single call, got %d", gen.callCount())
	}
}

func TestEvaluateRejectsOutOfRangeScore(t *testing.T) {
	disableSleep(t)

	gen := &stubGenerator{}
	for i := 0; i < 3; i++ {
		gen.enqueue(`{"ngmi_score": 140, "comment": "yikes"}`, nil)
	}

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	_, err := e.Evaluate(context.Background(), "resume", "job", testEvidence)
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", gen.callCount())
	}
}

func TestEvaluateBuildsIdenticalPrompts(t *testing.T) {
	gen := &stubGenerator{}
	gen.enqueue(goodResponse, nil)
	gen.enqueue(goodResponse, nil)

	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	ctx := context.Background()
	if _, err := e.Evaluate(ctx, "resume", "job", testEvidence); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if _, err := e.Evaluate(ctx, "resume", "job", testEvidence); err != nil {
		t.Fatalf("second evaluate: %v", err)
	}

	if gen.prompts[0] != gen.prompts[1] {
		t.Fatal("expected identical prompts for identical inputs")
	}
}

func TestEvaluateRequiresInputs(t *testing.T) {
	gen := &stubGenerator{}
	e := NewEvaluator(gen, zap.NewNop(), 3, 0, 0)

	if _, err := e.Evaluate(context.Background(), "  ", "job", testEvidence); err == nil {
		t.Fatal("expected error for empty resume text")
	}
	if _, err := e.Evaluate(context.Background(), "resume", "", testEvidence); err == nil {
		t.Fatal("expected error for empty job description")
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected no calls, got %d", gen.callCount())
	}
}
