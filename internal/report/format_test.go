package report

import (
	"strings"
	"testing"
	"time"

	"mbnotifier/internal/domain"
)

var reportDay = time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC)

func at(month time.Month, day, hour, minute int) *time.Time {
	d := time.Date(2026, month, day, hour, minute, 0, 0, time.UTC)
	return &d
}

func sampleChildren() []domain.ChildProfile {
	return []domain.ChildProfile{{
		Name: "Alice",
		ID:   "111",
		Assignments: []domain.Assignment{
			{
				Title:   "Worksheet Ch.5",
				Subject: "Mathematics",
				DueDate: at(time.February, 20, 23, 55),
				Status:  domain.StatusOverdue,
				URL:     "https://school.managebac.com/classes/123/tasks/456?child=789",
				Tags:    []string{"Summative", "Classwork"},
			},
			{
				Title:   "Lab Report",
				Subject: "Science",
				DueDate: at(time.February, 24, 11, 55),
				Status:  domain.StatusPending,
				URL:     "https://school.managebac.com/classes/124/tasks/457",
				Tags:    []string{"Formative"},
			},
			{
				Title:   "Essay Draft",
				Subject: "English",
				DueDate: at(time.February, 25, 8, 0),
				Status:  domain.StatusNotSubmitted,
				URL:     "https://school.managebac.com/classes/125/tasks/458",
			},
			{
				Title:   "History Reading",
				Subject: "History",
				DueDate: at(time.February, 28, 23, 55),
				Status:  domain.StatusPending,
				URL:     "https://school.managebac.com/classes/126/tasks/459",
			},
			{
				Title:   "Done Quiz",
				Subject: "Mathematics",
				DueDate: at(time.February, 23, 8, 0),
				Status:  domain.StatusSubmitted,
				URL:     "https://school.managebac.com/classes/123/tasks/460",
			},
		},
	}}
}

func TestFormatHTML(t *testing.T) {
	t.Parallel()

	out := FormatHTML(sampleChildren(), reportDay, Options{})

	for _, want := range []string{
		"<b>ManageBac Assignment Report</b>",
		"<b>2026-02-22 (日)</b>",
		"<b>Alice</b>",
		"<b>Overdue (1):</b>",
		"<b>Upcoming (2):</b>",
		`<a href="https://school.managebac.com/classes/123/tasks/456?child=789">Worksheet Ch.5</a>`,
		"[Summative] [Classwork]",
		"(due 2/20 23:55)",
		"\U0001f4cc",
		"<b>Science</b>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	// Submitted tasks and tasks beyond the default 3-day window stay out.
	for _, absent := range []string{"Done Quiz", "History Reading"} {
		if strings.Contains(out, absent) {
			t.Fatalf("report must not contain %q:\n%s", absent, out)
		}
	}

	// Upcoming groups keep first-seen subject order.
	if strings.Index(out, "<b>Science</b>") > strings.Index(out, "<b>English</b>") {
		t.Fatalf("Science group should precede English:\n%s", out)
	}
}

func TestFormatHTMLWiderWindow(t *testing.T) {
	t.Parallel()

	out := FormatHTML(sampleChildren(), reportDay, Options{UpcomingDays: 8})
	if !strings.Contains(out, "History Reading") {
		t.Fatalf("8-day window must include History Reading:\n%s", out)
	}
	if !strings.Contains(out, "<b>Upcoming (3):</b>") {
		t.Fatalf("expected three upcoming tasks:\n%s", out)
	}
}

func TestFormatHTMLOverdueSince(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, time.February, 21, 0, 0, 0, 0, time.UTC)
	out := FormatHTML(sampleChildren(), reportDay, Options{OverdueSince: &since})
	if strings.Contains(out, "Worksheet Ch.5") {
		t.Fatalf("cutoff must suppress the old overdue task:\n%s", out)
	}
	if strings.Contains(out, "Overdue (") {
		t.Fatalf("no overdue section expected:\n%s", out)
	}
}

func TestFormatHTMLEmptyChild(t *testing.T) {
	t.Parallel()

	children := []domain.ChildProfile{{Name: "Bob", ID: "222"}}
	out := FormatHTML(children, reportDay, Options{})
	if !strings.Contains(out, "No overdue or upcoming assignments.") {
		t.Fatalf("expected the empty-child line:\n%s", out)
	}
}

func TestFormatPlain(t *testing.T) {
	t.Parallel()

	out := FormatPlain(sampleChildren(), reportDay, Options{})

	for _, want := range []string{
		"ManageBac Assignment Report",
		"[Mathematics]",
		"[Summative]",
		"(2/20 23:55)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("plain report missing %q:\n%s", want, out)
		}
	}

	// Plain output carries only the first tag and no markup.
	if strings.Contains(out, "Classwork") {
		t.Fatalf("plain report must show the first tag only:\n%s", out)
	}
	if strings.Contains(out, "<b>") || strings.Contains(out, "<a href") {
		t.Fatalf("plain report must not contain HTML:\n%s", out)
	}
}

func TestFormatDueSoon(t *testing.T) {
	t.Parallel()

	out := FormatDueSoon(sampleChildren(), reportDay)
	if !strings.Contains(out, "<b>Due soon</b>") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Alice: Lab Report (day after tomorrow)") {
		t.Fatalf("missing due-soon line:\n%s", out)
	}
	// Overdue and beyond-horizon tasks stay out of the urgent summary.
	for _, absent := range []string{"Worksheet Ch.5", "Essay Draft", "History Reading"} {
		if strings.Contains(out, absent) {
			t.Fatalf("due-soon summary must not contain %q:\n%s", absent, out)
		}
	}
}

func TestGroupBySubject(t *testing.T) {
	t.Parallel()

	groups := GroupBySubject([]domain.Assignment{
		{Title: "a", Subject: "Mathematics"},
		{Title: "b", Subject: "Science"},
		{Title: "c", Subject: "Mathematics"},
		{Title: "d"},
	})

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %v", len(groups), groups)
	}
	if groups[0].Subject != "Mathematics" || len(groups[0].Tasks) != 2 {
		t.Fatalf("first group = %+v", groups[0])
	}
	if groups[1].Subject != "Science" {
		t.Fatalf("second group = %+v", groups[1])
	}
	if groups[2].Subject != "Other" || groups[2].Tasks[0].Title != "d" {
		t.Fatalf("subjectless tasks must group under Other: %+v", groups[2])
	}
}

func TestFormatDueSoonEmpty(t *testing.T) {
	t.Parallel()

	children := []domain.ChildProfile{{
		Name: "Alice",
		Assignments: []domain.Assignment{
			{Title: "Far Future", Subject: "Arts", DueDate: at(time.March, 15, 8, 0), Status: domain.StatusPending},
		},
	}}
	if out := FormatDueSoon(children, reportDay); out != "" {
		t.Fatalf("expected empty summary, got:\n%s", out)
	}
}
