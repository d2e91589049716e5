package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/PuerkitoBio/goquery"
	"github.com/ngmihq/ngmi/internal/store"
	"go.uber.org/zap"
)

//go:embed prompt.md
var detailsPromptTemplate string

const (
	fetchTimeout = 10 * time.Second
	maxPageChars = 8000

	// Some job boards refuse requests without a browser user agent.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Ingester turns a job posting URL into a corpus entry: fetch the page,
// strip it down to text, and let the model pull out title, company and a
// clean description.
type Ingester struct {
	corpus    *Corpus
	generator contentGenerator
	client    *http.Client
	logger    *zap.Logger
}

func NewIngester(corpus *Corpus, generator contentGenerator, logger *zap.Logger) *Ingester {
	return &Ingester{
		corpus:    corpus,
		generator: generator,
		client:    &http.Client{Timeout: fetchTimeout},
		logger:    logger,
	}
}

func (i *Ingester) FromURL(ctx context.Context, url string) (*store.Job, error) {
	text, err := i.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("fetched job page",
		zap.String("url", url),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	details, err := i.extractDetails(ctx, text)
	if err != nil {
		return nil, err
	}

	return i.corpus.Add(ctx, details.Title, details.Company, details.Description)
}

func (i *Ingester) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	return pageText(resp.Body)
}

func pageText(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		return "", errors.New("no readable content found on the page")
	}

	if runes := []rune(text); len(runes) > maxPageChars {
		text = string(runes[:maxPageChars]) + "..."
	}

	return text, nil
}

func collapseWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}

type jobDetails struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

func (i *Ingester) extractDetails(ctx context.Context, text string) (*jobDetails, error) {
	prompt := strings.ReplaceAll(detailsPromptTemplate, "{{PAGE_TEXT}}", text)

	raw, err := i.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract job details: %w", err)
	}

	var details jobDetails
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &details); err != nil {
		return nil, fmt.Errorf("parse job details: %w", err)
	}

	if strings.TrimSpace(details.Title) == "" {
		return nil, errors.New("no job title found on the page")
	}
	if strings.TrimSpace(details.Description) == "" {
		return nil, errors.New("no job description found on the page")
	}

	return &details, nil
}

// cleanJSON strips a markdown code fence from a model response.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimLeft(raw, "\r\n")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
