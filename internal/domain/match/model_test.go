package match

import "testing"

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{"NS", StatusScheduled},
		{"timed", StatusScheduled},
		{"POSTPONED", StatusScheduled},
		{"LIVE", StatusLive},
		{"in", StatusLive},
		{"IN_PLAY", StatusLive},
		{"Q3", StatusLive},
		{"HT", StatusLive},
		{"FT", StatusFinished},
		{"Final", StatusFinished},
		{"post", StatusFinished},
		{"", StatusUnknown},
		{"SOMETHING_NEW", StatusUnknown},
	}
	for _, tc := range cases {
		if got := NormalizeStatus(tc.raw); got != tc.want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIsLive(t *testing.T) {
	t.Parallel()

	if !(Match{Status: StatusLive}).IsLive() {
		t.Fatalf("expected live match to report IsLive")
	}
	if (Match{Status: StatusScheduled}).IsLive() {
		t.Fatalf("expected scheduled match not to report IsLive")
	}
}
