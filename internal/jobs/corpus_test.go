package jobs

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ngmihq/ngmi/internal/store"
	"go.uber.org/zap"
)

type memJobs struct {
	mu     sync.Mutex
	jobs   []store.Job
	nextID int64
}

func (m *memJobs) CreateJob(_ context.Context, params store.CreateJobParams) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	job := store.Job{
		ID:             m.nextID,
		Title:          params.Title,
		Company:        params.Company,
		Description:    params.Description,
		RequiredSkills: append([]string{}, params.Skills...),
		CreatedAt:      time.Now(),
	}
	m.jobs = append(m.jobs, job)
	return &job, nil
}

func (m *memJobs) GetJob(_ context.Context, id int64) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		if j.ID == id {
			job := j
			return &job, nil
		}
	}
	return nil, nil
}

func (m *memJobs) ListJobs(context.Context) ([]store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Job{}, m.jobs...), nil
}

func TestAddDetectsRequiredSkills(t *testing.T) {
	corpus := NewCorpus(&memJobs{}, nil, zap.NewNop())

	job, err := corpus.Add(context.Background(), "Frontend Developer", "WebWorks", "React and TypeScript, with modern CSS.")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := []string{"css", "react", "typescript"}
	if !reflect.DeepEqual(job.RequiredSkills, want) {
		t.Fatalf("RequiredSkills = %v, want %v", job.RequiredSkills, want)
	}
}

func TestAddValidatesInput(t *testing.T) {
	corpus := NewCorpus(&memJobs{}, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := corpus.Add(ctx, "  ", "ACME", "a description"); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := corpus.Add(ctx, "Engineer", "ACME", ""); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestSeed(t *testing.T) {
	storage := &memJobs{}
	corpus := NewCorpus(storage, nil, zap.NewNop())
	ctx := context.Background()

	added, err := corpus.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if added != len(samplePostings) {
		t.Fatalf("Seed added %d jobs, want %d", added, len(samplePostings))
	}

	jobs, err := corpus.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != len(samplePostings) {
		t.Fatalf("corpus holds %d jobs, want %d", len(jobs), len(samplePostings))
	}

	// Sample postings must come out with vocabulary-detected skills, or
	// every seeded job would mechanically score zero.
	first := jobs[0]
	if first.Company != "TechCorp" {
		t.Fatalf("unexpected first job: %+v", first)
	}
	want := []string{"django", "postgresql", "python"}
	if !reflect.DeepEqual(first.RequiredSkills, want) {
		t.Fatalf("RequiredSkills = %v, want %v", first.RequiredSkills, want)
	}

	// Seeding a non-empty corpus is a no-op.
	added, err = corpus.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if added != 0 {
		t.Fatalf("second Seed added %d jobs, want 0", added)
	}
}
