package managebac

import (
	"testing"
	"time"
)

var refDay = time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC)

func TestParseDueDateFull(t *testing.T) {
	t.Parallel()

	got := parseDueDate("Feb 22, 11:55 PM", viewUpcoming, refDay)
	if got == nil {
		t.Fatal("expected a parsed date")
	}
	want := time.Date(2026, time.February, 22, 23, 55, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parsed %v, want %v", got, want)
	}
}

func TestParseDueDateDateOnly(t *testing.T) {
	t.Parallel()

	got := parseDueDate("Mar 3", viewUpcoming, refDay)
	if got == nil {
		t.Fatal("expected a parsed date")
	}
	want := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parsed %v, want %v", got, want)
	}
}

func TestParseDueDateTrailingText(t *testing.T) {
	t.Parallel()

	got := parseDueDate("Feb 24, 11:55 PM (in 2 days)", viewUpcoming, refDay)
	if got == nil {
		t.Fatal("expected a parsed date")
	}
	want := time.Date(2026, time.February, 24, 23, 55, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parsed %v, want %v", got, want)
	}
}

func TestParseDueDateYearRollover(t *testing.T) {
	t.Parallel()

	// A December date in the overdue listing in February belongs to last year.
	got := parseDueDate("Dec 30", viewOverdue, refDay)
	if got == nil {
		t.Fatal("expected a parsed date")
	}
	if got.Year() != 2025 {
		t.Fatalf("overdue Dec 30 resolved to year %d, want 2025", got.Year())
	}

	// In the upcoming listing the same string stays in the current year.
	got = parseDueDate("Dec 30", viewUpcoming, refDay)
	if got == nil {
		t.Fatal("expected a parsed date")
	}
	if got.Year() != 2026 {
		t.Fatalf("upcoming Dec 30 resolved to year %d, want 2026", got.Year())
	}
}

func TestParseDueDateUnparseable(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"3 days left",
		"sometime soon",
		"due Mar 3",
		"Xyz 12",
	}
	for _, text := range cases {
		if got := parseDueDate(text, viewUpcoming, refDay); got != nil {
			t.Fatalf("parseDueDate(%q) = %v, want nil", text, got)
		}
	}
}
