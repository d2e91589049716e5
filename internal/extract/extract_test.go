package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func stubParseDocument(t *testing.T, text string, err error) {
	t.Helper()

	original := parseDocument
	parseDocument = func([]byte) (string, error) { return text, err }
	t.Cleanup(func() { parseDocument = original })
}

func TestExtractTooLarge(t *testing.T) {
	e := New(16, DefaultVocabulary())

	_, _, err := e.Extract([]byte(strings.Repeat("x", 17)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestExtractUnparseable(t *testing.T) {
	e := New(0, DefaultVocabulary())

	text, skills, err := e.Extract([]byte("this is not a pdf at all"))
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
	if text != "" || skills != nil {
		t.Fatalf("expected empty results on failure, got %q, %v", text, skills)
	}
}

func TestExtractEmpty(t *testing.T) {
	stubParseDocument(t, "  \n\t ", nil)
	e := New(0, DefaultVocabulary())

	_, _, err := e.Extract([]byte("%PDF-1.4"))
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestExtractDetectsSkills(t *testing.T) {
	stubParseDocument(t, "Senior engineer. Python, SQL and Django on AWS.", nil)
	e := New(0, DefaultVocabulary())

	text, skills, err := e.Extract([]byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text == "" {
		t.Fatal("expected extracted text")
	}

	want := []string{"aws", "django", "python", "sql"}
	if !reflect.DeepEqual(skills, want) {
		t.Fatalf("skills = %v, want %v", skills, want)
	}
}

func TestExtractDeterministicFailure(t *testing.T) {
	e := New(0, DefaultVocabulary())
	data := []byte("garbage bytes that will never parse")

	_, _, err1 := e.Extract(data)
	_, _, err2 := e.Extract(data)

	if !errors.Is(err1, ErrUnparseable) || !errors.Is(err2, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable twice, got %v and %v", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("same bytes failed differently: %q vs %q", err1, err2)
	}
}
