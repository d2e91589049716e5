// Package match computes the mechanical fit between a resume's skills and
// a job's required skills. It is pure arithmetic over skill sets and never
// talks to a model or a database.
package match

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Result describes how a resume's skills line up against a job's
// requirements.
type Result struct {
	// Score is the percentage of required skills present in the resume,
	// rounded to one decimal place. A job with no required skills scores 0.
	Score float64
	// Matched holds the required skills found in the resume, sorted.
	Matched []string
	// Missing holds the required skills absent from the resume, sorted.
	Missing []string
}

// Score compares resume skills against required skills. Duplicates are
// collapsed before comparison, and skills the resume carries beyond the
// requirements do not raise the score. The same inputs always produce the
// same Result.
func Score(resumeSkills, requiredSkills []string) Result {
	resume := mapset.NewThreadUnsafeSet(resumeSkills...)
	required := mapset.NewThreadUnsafeSet(requiredSkills...)

	matched := required.Intersect(resume).ToSlice()
	missing := required.Difference(resume).ToSlice()
	sort.Strings(matched)
	sort.Strings(missing)

	result := Result{Matched: matched, Missing: missing}
	if required.Cardinality() == 0 {
		return result
	}

	raw := 100 * float64(len(matched)) / float64(required.Cardinality())
	result.Score = round1(raw)

	return result
}

// round1 rounds to one decimal place, halves away from zero. Inputs are
// always in [0, 100].
func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
