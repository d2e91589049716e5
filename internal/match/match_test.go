package match

import (
	"reflect"
	"testing"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		resume   []string
		required []string
		want     Result
	}{
		{
			name:     "two of three required",
			resume:   []string{"python", "sql"},
			required: []string{"python", "sql", "react"},
			want:     Result{Score: 66.7, Matched: []string{"python", "sql"}, Missing: []string{"react"}},
		},
		{
			name:     "empty resume",
			resume:   nil,
			required: []string{"python"},
			want:     Result{Score: 0, Matched: []string{}, Missing: []string{"python"}},
		},
		{
			name:     "full match with extra resume skills",
			resume:   []string{"go", "docker", "aws"},
			required: []string{"docker", "go"},
			want:     Result{Score: 100, Matched: []string{"docker", "go"}, Missing: []string{}},
		},
		{
			name:     "no requirements",
			resume:   []string{"python"},
			required: nil,
			want:     Result{Score: 0, Matched: []string{}, Missing: []string{}},
		},
		{
			name:     "disjoint",
			resume:   []string{"php"},
			required: []string{"rust", "go"},
			want:     Result{Score: 0, Matched: []string{}, Missing: []string{"go", "rust"}},
		},
		{
			name:     "duplicates collapse",
			resume:   []string{"python", "python", "sql"},
			required: []string{"python", "sql", "python"},
			want:     Result{Score: 100, Matched: []string{"python", "sql"}, Missing: []string{}},
		},
		{
			name:     "one of three",
			resume:   []string{"react", "figma"},
			required: []string{"react", "typescript", "css"},
			want:     Result{Score: 33.3, Matched: []string{"react"}, Missing: []string{"css", "typescript"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.resume, tc.required)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Score(%v, %v) = %+v, want %+v", tc.resume, tc.required, got, tc.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	resume := []string{"go", "python", "terraform", "sql"}
	required := []string{"python", "react", "sql"}

	first := Score(resume, required)
	for i := 0; i < 50; i++ {
		if got := Score(resume, required); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: Score returned %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e"}

	for i := 0; i <= len(pool); i++ {
		for j := 0; j <= len(pool); j++ {
			got := Score(pool[:i], pool[:j])
			if got.Score < 0 || got.Score > 100 {
				t.Fatalf("Score(%v, %v) = %v, out of [0, 100]", pool[:i], pool[:j], got.Score)
			}
		}
	}
}
