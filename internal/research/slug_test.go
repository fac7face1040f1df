package research

import "testing"

func TestDeriveSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  string
	}{
		{"EUR/USD Long Setup", "eurusd-long-setup"},
		{"Test Alpha", "test-alpha"},
		{"", ""},
		{"   ", "-"},
		{"GBP/JPY  breakout   retest", "gbpjpy-breakout-retest"},
		{"Already-Canonical-Slug", "already-canonical-slug"},
		{"100% Win Rate?!", "100-win-rate"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"!!!", ""},
	}

	for _, tc := range cases {
		if got := DeriveSlug(tc.title); got != tc.want {
			t.Errorf("DeriveSlug(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestDeriveSlugIdempotentOnCanonicalForm(t *testing.T) {
	t.Parallel()

	titles := []string{"EUR/USD Long Setup", "Test Alpha", "weekly review 2025"}
	for _, title := range titles {
		once := DeriveSlug(title)
		if twice := DeriveSlug(once); twice != once {
			t.Errorf("DeriveSlug not idempotent: %q -> %q -> %q", title, once, twice)
		}
	}
}
