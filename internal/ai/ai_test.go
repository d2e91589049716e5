package ai

import "testing"

func TestBand(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, "Certified GMI"},
		{19.9, "Certified GMI"},
		{20, "Possible W"},
		{39.9, "Possible W"},
		{40, "Borderline NGMI"},
		{42.1, "Borderline NGMI"},
		{60, "Very NGMI"},
		{79.9, "Very NGMI"},
		{80, "Utterly NGMI"},
		{100, "Utterly NGMI"},
	}

	for _, tc := range cases {
		if got := Band(tc.score); got != tc.want {
			t.Errorf("Band(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
