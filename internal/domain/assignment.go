package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status mirrors the submission state shown on a ManageBac task tile.
type Status string

const (
	StatusOverdue      Status = "overdue"
	StatusNotSubmitted Status = "not_submitted"
	StatusNotAssessed  Status = "not_assessed"
	StatusPending      Status = "pending"
	StatusSubmitted    Status = "submitted"
	StatusGraded       Status = "graded"
)

// Done reports whether the status exempts a task from overdue/upcoming
// classification regardless of its due date.
func (s Status) Done() bool {
	switch s {
	case StatusSubmitted, StatusNotAssessed, StatusGraded:
		return true
	}
	return false
}

var taskIDExpr = regexp.MustCompile(`/tasks/(\d+)`)

// Assignment is one scraped task. Values are built fresh on every scrape and
// never mutated afterwards; classification is a pure function of the fields
// plus a caller-supplied reference date.
type Assignment struct {
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	DueDate   *time.Time `json:"due_date"`
	Status    Status     `json:"status"`
	ChildName string     `json:"child_name"`
	URL       string     `json:"url"`
	Tags      []string   `json:"tags"`
}

// TaskID extracts the numeric task identifier from a URL like
// /classes/123/tasks/456?child=789. Empty when the URL has no task segment.
// It is the stable identity key for ignore-toggling across fetches.
func (a Assignment) TaskID() string {
	match := taskIDExpr.FindStringSubmatch(a.URL)
	if match == nil {
		return ""
	}
	return match[1]
}

// IsOverdue reports whether the task counts as overdue on the given day.
// Tasks with a done status never do; a non-nil since suppresses tasks due
// before the cutoff.
func (a Assignment) IsOverdue(today time.Time, since *time.Time) bool {
	if a.Status.Done() {
		return false
	}
	due, hasDue := a.dueDateOnly()
	if since != nil && hasDue && due.Before(dateOnly(*since)) {
		return false
	}
	if a.Status == StatusOverdue {
		return true
	}
	return hasDue && due.Before(dateOnly(today))
}

// IsUpcoming reports whether the task is due within windowDays of today.
// Done and overdue statuses are excluded; tasks without a due date never
// count as upcoming.
func (a Assignment) IsUpcoming(today time.Time, windowDays int) bool {
	if a.Status.Done() || a.Status == StatusOverdue {
		return false
	}
	due, hasDue := a.dueDateOnly()
	if !hasDue {
		return false
	}
	day := dateOnly(today)
	return !due.Before(day) && !due.After(day.AddDate(0, 0, windowDays))
}

// DueSoonLabel maps a due date within the 2-day urgent horizon to a relative
// label. The second return is false for anything outside the horizon.
func (a Assignment) DueSoonLabel(today time.Time) (string, bool) {
	if !a.IsUpcoming(today, 2) {
		return "", false
	}
	due, _ := a.dueDateOnly()
	day := dateOnly(today)
	switch {
	case due.Equal(day):
		return "today", true
	case due.Equal(day.AddDate(0, 0, 1)):
		return "tomorrow", true
	case due.Equal(day.AddDate(0, 0, 2)):
		return "day after tomorrow", true
	}
	return "", false
}

// DueDateString renders the due date as "M/D H:MM" without leading zeros,
// or "no date" when absent.
func (a Assignment) DueDateString() string {
	if a.DueDate == nil {
		return "no date"
	}
	d := *a.DueDate
	return fmt.Sprintf("%d/%d %d:%02d", int(d.Month()), d.Day(), d.Hour(), d.Minute())
}

// TagsString renders all tags as bracketed tokens: "[Summative] [Classwork]".
func (a Assignment) TagsString() string {
	if len(a.Tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		parts = append(parts, "["+t+"]")
	}
	return strings.Join(parts, " ")
}

func (a Assignment) dueDateOnly() (time.Time, bool) {
	if a.DueDate == nil {
		return time.Time{}, false
	}
	return dateOnly(*a.DueDate), true
}

// dateOnly truncates to the calendar day in a fixed zone. Due dates parse in
// UTC while reference days arrive in host time; comparing the wall-clock
// components keeps the window arithmetic zone-independent.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ChildProfile is one monitored child and the assignments scraped for them.
// The ID is the numeric identifier embedded in the portal's child switcher.
type ChildProfile struct {
	Name        string       `json:"name"`
	ID          string       `json:"managebac_id"`
	Assignments []Assignment `json:"assignments"`
}
