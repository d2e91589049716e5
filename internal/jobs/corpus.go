// Package jobs manages the job posting corpus.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ngmihq/ngmi/internal/extract"
	"github.com/ngmihq/ngmi/internal/store"
	"go.uber.org/zap"
)

type Storage interface {
	CreateJob(ctx context.Context, params store.CreateJobParams) (*store.Job, error)
	GetJob(ctx context.Context, id int64) (*store.Job, error)
	ListJobs(ctx context.Context) ([]store.Job, error)
}

// Corpus adds and reads job postings. Required skills are derived from
// the description with the same vocabulary used on resumes, so both
// sides of a match speak the same terms.
type Corpus struct {
	storage Storage
	vocab   *extract.Vocabulary
	logger  *zap.Logger
}

func NewCorpus(storage Storage, vocab *extract.Vocabulary, logger *zap.Logger) *Corpus {
	if vocab == nil {
		vocab = extract.DefaultVocabulary()
	}
	return &Corpus{storage: storage, vocab: vocab, logger: logger}
}

func (c *Corpus) GetJob(ctx context.Context, id int64) (*store.Job, error) {
	return c.storage.GetJob(ctx, id)
}

func (c *Corpus) ListJobs(ctx context.Context) ([]store.Job, error) {
	return c.storage.ListJobs(ctx)
}

func (c *Corpus) Add(ctx context.Context, title, company, description string) (*store.Job, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, errors.New("job title is required")
	}
	if description == "" {
		return nil, errors.New("job description is required")
	}

	job, err := c.storage.CreateJob(ctx, store.CreateJobParams{
		Title:       title,
		Company:     strings.TrimSpace(company),
		Description: description,
		Skills:      c.vocab.Detect(description),
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("job added",
		zap.Int64("job_id", job.ID),
		zap.String("title", job.Title),
		zap.Strings("required_skills", job.RequiredSkills),
	)

	return job, nil
}

type samplePosting struct {
	title       string
	company     string
	description string
}

var samplePostings = []samplePosting{
	{
		title:       "Software Engineer",
		company:     "TechCorp",
		description: "Looking for a Python developer with 3+ years experience. Must know Django, PostgreSQL, and have strong problem-solving skills.",
	},
	{
		title:       "Data Scientist",
		company:     "DataFlow Inc",
		description: "Seeking ML engineer with Python, TensorFlow, and statistics background. PhD preferred but not required.",
	},
	{
		title:       "Frontend Developer",
		company:     "WebWorks",
		description: "React/TypeScript developer needed. Must have experience with modern CSS, REST APIs, and agile development.",
	},
	{
		title:       "DevOps Engineer",
		company:     "CloudFirst",
		description: "AWS/Docker expert wanted. Kubernetes, CI/CD, and infrastructure as code experience required.",
	},
	{
		title:       "Product Manager",
		company:     "StartupXYZ",
		description: "Technical PM with engineering background. Must understand software development lifecycle and user research.",
	},
}

// Seed fills an empty corpus with the sample postings and returns how
// many it added. A corpus that already has jobs is left untouched.
func (c *Corpus) Seed(ctx context.Context) (int, error) {
	existing, err := c.storage.ListJobs(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, posting := range samplePostings {
		if _, err := c.Add(ctx, posting.title, posting.company, posting.description); err != nil {
			return 0, fmt.Errorf("seed job %q: %w", posting.title, err)
		}
	}

	return len(samplePostings), nil
}
