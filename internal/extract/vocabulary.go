package extract

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed vocabulary.txt
var defaultVocabulary string

// Vocabulary is the closed set of skills Detect can recognize. Every entry
// has one canonical term and any number of aliases; Detect matches aliases
// in normalized text and reports canonical terms. A Vocabulary never
// changes after construction, so it is safe for concurrent use.
type Vocabulary struct {
	aliases map[string]string // normalized alias, token-joined -> canonical term
	terms   []string          // sorted canonical terms
}

// DefaultVocabulary returns the vocabulary compiled into the binary.
func DefaultVocabulary() *Vocabulary {
	return newVocabulary(strings.Split(defaultVocabulary, "\n"))
}

// ParseVocabulary reads a vocabulary from r, one entry per line. Entries
// are comma separated: the first value is the canonical term, the rest are
// aliases. Blank lines and lines starting with # are skipped.
func ParseVocabulary(r io.Reader) (*Vocabulary, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}

	return newVocabulary(lines), nil
}

func newVocabulary(lines []string) *Vocabulary {
	v := &Vocabulary{aliases: make(map[string]string)}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var canonical string
		for _, part := range strings.Split(line, ",") {
			part = Normalize(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if canonical == "" {
				canonical = part
				v.terms = append(v.terms, canonical)
			}
			// Aliases are keyed by their token join so matching is
			// insensitive to spacing and punctuation between words.
			v.aliases[strings.Join(Tokenize(part), " ")] = canonical
		}
	}

	sort.Strings(v.terms)

	return v
}

// Len reports the number of canonical terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Terms returns a copy of the sorted canonical terms.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)

	return out
}

// Detect scans text for vocabulary terms and returns the canonical form of
// every term found, sorted and deduplicated. Words outside the vocabulary
// are ignored. The same text always yields the same result.
func (v *Vocabulary) Detect(text string) []string {
	tokens := Tokenize(Normalize(text))
	if len(tokens) == 0 {
		return []string{}
	}

	// Space padding restricts multi-word aliases to token boundaries.
	joined := " " + strings.Join(tokens, " ") + " "

	found := mapset.NewThreadUnsafeSet[string]()
	for alias, canonical := range v.aliases {
		if strings.Contains(joined, " "+alias+" ") {
			found.Add(canonical)
		}
	}

	out := found.ToSlice()
	sort.Strings(out)

	return out
}

// Normalize lower-cases s and strips diacritics, so "Résumé" matches
// "resume".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.ToLower(stripped)
}

// Tokenize splits s into word tokens. The characters + # . count as word
// characters so names like c++, c# and node.js survive, but a trailing dot
// is punctuation, not part of the token.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
	}

	return tokens
}
