package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

const jobPage = `<!DOCTYPE html>
<html>
<head><title>Careers</title><script>var tracking = "do not leak";</script></head>
<body>
<nav>Home | Jobs | About</nav>
<header>MegaJobs board</header>
<main>
<h1>Backend Engineer</h1>
<p>ExampleSoft is hiring a backend engineer.</p>
<p>You will build services in Go with PostgreSQL.</p>
</main>
<footer>©2025 MegaJobs</footer>
</body>
</html>`

func TestFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Mozilla") {
			t.Errorf("unexpected user agent: %q", got)
		}
		w.Write([]byte(jobPage))
	}))
	defer server.Close()

	gen := &stubGenerator{
		response: "```json\n{\"title\": \"Backend Engineer\", \"company\": \"ExampleSoft\", \"description\": \"Build services in Go with PostgreSQL.\"}\n```",
	}
	corpus := NewCorpus(&memJobs{}, nil, zap.NewNop())
	ingester := NewIngester(corpus, gen, zap.NewNop())

	job, err := ingester.FromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}

	if job.Title != "Backend Engineer" || job.Company != "ExampleSoft" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(job.RequiredSkills) == 0 {
		t.Fatal("expected detected skills on the ingested job")
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 generator call, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "ExampleSoft is hiring") {
		t.Fatalf("prompt is missing page content:\n%s", prompt)
	}
	for _, leaked := range []string{"do not leak", "Home | Jobs", "MegaJobs board", "©2025"} {
		if strings.Contains(prompt, leaked) {
			t.Fatalf("prompt leaked stripped content %q:\n%s", leaked, prompt)
		}
	}
}

func TestFromURLBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	corpus := NewCorpus(&memJobs{}, nil, zap.NewNop())
	ingester := NewIngester(corpus, &stubGenerator{}, zap.NewNop())

	if _, err := ingester.FromURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFromURLMissingTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jobPage))
	}))
	defer server.Close()

	gen := &stubGenerator{response: `{"title": "", "company": "", "description": "something"}`}
	corpus := NewCorpus(&memJobs{}, nil, zap.NewNop())
	ingester := NewIngester(corpus, gen, zap.NewNop())

	if _, err := ingester.FromURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error when no title was extracted")
	}
}

func TestPageTextCapsLength(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body>")
	for i := 0; i < 2000; i++ {
		page.WriteString("<p>endless corporate boilerplate</p>")
	}
	page.WriteString("</body></html>")

	text, err := pageText(strings.NewReader(page.String()))
	if err != nil {
		t.Fatalf("pageText: %v", err)
	}

	if got := len([]rune(text)); got > maxPageChars+3 {
		t.Fatalf("text length %d exceeds cap", got)
	}
	if !strings.HasSuffix(text, "...") {
		t.Fatal("expected truncated text to end with ellipsis")
	}
}

func TestPageTextEmpty(t *testing.T) {
	_, err := pageText(strings.NewReader("<html><body><script>only();</script></body></html>"))
	if err == nil {
		t.Fatal("expected error for page without readable content")
	}
}

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tc := range cases {
		if got := cleanJSON(tc.in); got != tc.want {
			t.Errorf("cleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
