// Package extract turns uploaded resume files into plain text and a list
// of recognized skills.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxSize is the largest resume accepted when no limit is
// configured.
const DefaultMaxSize int64 = 10 << 20

// Extraction failures are terminal for a given file: the same bytes fail
// the same way every time, so callers must not retry them.
var (
	ErrTooLarge    = errors.New("resume exceeds the maximum file size")
	ErrUnparseable = errors.New("resume is not a readable pdf")
	ErrEmpty       = errors.New("resume contains no extractable text")
)

// parseDocument is swappable in tests.
var parseDocument = pdfText

// Extractor extracts text and skills from resume files. PDF is the only
// supported format.
type Extractor struct {
	maxSize int64
	vocab   *Vocabulary
}

// New returns an Extractor with the given size limit and vocabulary.
// Non-positive maxSize falls back to DefaultMaxSize, a nil vocabulary to
// DefaultVocabulary.
func New(maxSize int64, vocab *Vocabulary) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	return &Extractor{maxSize: maxSize, vocab: vocab}
}

// Extract pulls the plain text out of a PDF and detects vocabulary skills
// in it. The skills come back sorted and deduplicated; text outside the
// vocabulary contributes nothing.
func (e *Extractor) Extract(data []byte) (string, []string, error) {
	if int64(len(data)) > e.maxSize {
		return "", nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, len(data), e.maxSize)
	}

	text, err := parseDocument(data)
	if err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(text) == "" {
		return "", nil, ErrEmpty
	}

	return text, e.vocab.Detect(text), nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables
	// instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnparseable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnparseable, i, err)
		}

		pages = append(pages, content)
	}

	return strings.Join(pages, "\n"), nil
}
