package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"negative", -5 * time.Second, "now"},
		{"subsecond", 0, "now"},
		{"seconds", 12 * time.Second, "12s"},
		{"minutes", 61 * time.Second, "1m"},
		{"hours_only", 2*time.Hour + 10*time.Second, "2h"},
		{"hours_minutes", 2*time.Hour + 3*time.Minute, "2h 3m"},
		{"days", 24 * time.Hour, "1d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := humanizeDuration(tc.in); got != tc.want {
				t.Fatalf("humanizeDuration(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  Sreebhumi  ", 20, "Sreebhumi"},
		{"Sreebhumi", 5, "Sree…"},
		{"Sreebhumi", 1, "S"},
		{"Sreebhumi", 0, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
	if got := []rune(truncate("কুমোরটুলি", 4)); len(got) != 4 || got[3] != '…' {
		t.Fatalf("truncate counts runes: got %q", string(got))
	}
}

func TestStarsAndAggregate(t *testing.T) {
	if got := stars(3); got != "★★★☆☆" {
		t.Fatalf("stars(3) = %q", got)
	}
	if got := stars(9); got != "★★★★★" {
		t.Fatalf("stars(9) = %q, want clamped", got)
	}
	if got := formatAggregate(nil, 0); got != "Not rated yet" {
		t.Fatalf("formatAggregate(nil) = %q", got)
	}
	r := 4.333
	if got := formatAggregate(&r, 3); got != "4.33 ★ (3 ratings)" {
		t.Fatalf("formatAggregate = %q", got)
	}
	if got := formatAggregate(&r, 1); got != "4.33 ★ (1 rating)" {
		t.Fatalf("formatAggregate singular = %q", got)
	}
}

func TestPadding(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padLeft("ab", 4); got != "  ab" {
		t.Fatalf("padLeft = %q", got)
	}
	if got := padLeft("abcdef", 4); got != "abcdef" {
		t.Fatalf("padLeft overflow = %q", got)
	}
}
