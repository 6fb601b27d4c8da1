package report

import (
	"testing"
	"time"
)

func TestStatusFromString(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"OPEN", StatusOpen},
		{"open", StatusOpen},
		{" In_Progress ", StatusInProgress},
		{"RESOLVED", StatusResolved},
		{"REJECTED", StatusRejected},
		{"nonsense", StatusOpen}, // unknown values default to OPEN
		{"", StatusOpen},
	}
	for _, c := range cases {
		if got := StatusFromString(c.in); got != c.want {
			t.Fatalf("StatusFromString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusResolved, StatusRejected} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if Status("CLOSED").Valid() {
		t.Fatal("CLOSED is not a defined status")
	}
}

func TestLocationRoundTrip(t *testing.T) {
	loc := FormatLocation("overworld", 12.5, 64, -3.25)
	if loc != "World: overworld, X: 12.50, Y: 64.00, Z: -3.25" {
		t.Fatalf("unexpected location format: %s", loc)
	}

	world, x, y, z, err := ParseLocation(loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if world != "overworld" || x != 12.5 || y != 64 || z != -3.25 {
		t.Fatalf("parsed (%s, %v, %v, %v)", world, x, y, z)
	}
}

func TestParseLocationMalformed(t *testing.T) {
	cases := []string{
		"",
		"overworld, 1, 2, 3",
		"World: overworld, X: 1, Y: 2",
		"World: overworld, X: abc, Y: 2, Z: 3",
		"X: 1, Y: 2, Z: 3, World: overworld",
	}
	for _, c := range cases {
		if _, _, _, _, err := ParseLocation(c); err == nil {
			t.Fatalf("ParseLocation(%q) succeeded, want error", c)
		}
	}
}

func TestFormatComment(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	got := FormatComment(at, "staffA", "cannot reproduce")
	want := "[2024-06-01 09:30:00] staffA: cannot reproduce"
	if got != want {
		t.Fatalf("FormatComment = %q, want %q", got, want)
	}
}
