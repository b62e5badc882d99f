package report

import (
	"fmt"
	"strings"
	"time"

	"mbnotifier/internal/domain"
)

var cjkWeekdays = map[time.Weekday]string{
	time.Monday:    "一",
	time.Tuesday:   "二",
	time.Wednesday: "三",
	time.Thursday:  "四",
	time.Friday:    "五",
	time.Saturday:  "六",
	time.Sunday:    "日",
}

// Options carries the reporting window parameters. The same reference date
// and options must be threaded through a whole formatting pass so every
// grouping step classifies consistently.
type Options struct {
	UpcomingDays int
	OverdueSince *time.Time
}

// WindowDays returns the upcoming horizon, defaulting to 3 days.
func (o Options) WindowDays() int {
	if o.UpcomingDays > 0 {
		return o.UpcomingDays
	}
	return 3
}

// FormatHTML renders the per-child report as Telegram HTML: overdue and
// upcoming sections grouped by subject, linked titles, bracketed tags.
func FormatHTML(children []domain.ChildProfile, today time.Time, opts Options) string {
	lines := []string{
		"<b>ManageBac Assignment Report</b>",
		"<b>" + headerDate(today) + "</b>",
	}

	for _, child := range children {
		overdue, upcoming := splitAssignments(child.Assignments, today, opts)

		lines = append(lines, "\n<b>"+child.Name+"</b>")
		if len(overdue) == 0 && len(upcoming) == 0 {
			lines = append(lines, "No overdue or upcoming assignments.")
			continue
		}

		if len(overdue) > 0 {
			lines = append(lines, fmt.Sprintf("\n<b>Overdue (%d):</b>", len(overdue)))
			lines = append(lines, formatBySubjectHTML(overdue)...)
		}
		if len(upcoming) > 0 {
			lines = append(lines, fmt.Sprintf("\n<b>Upcoming (%d):</b>", len(upcoming)))
			lines = append(lines, formatBySubjectHTML(upcoming)...)
		}
	}

	return strings.Join(lines, "\n")
}

// FormatPlain renders the same report without markup, for LINE alt text and
// dry runs. Only the first tag is shown, for brevity.
func FormatPlain(children []domain.ChildProfile, today time.Time, opts Options) string {
	lines := []string{
		"ManageBac Assignment Report",
		headerDate(today),
	}

	for _, child := range children {
		overdue, upcoming := splitAssignments(child.Assignments, today, opts)

		lines = append(lines, "\n"+child.Name)
		if len(overdue) == 0 && len(upcoming) == 0 {
			lines = append(lines, "No overdue or upcoming assignments.")
			continue
		}

		if len(overdue) > 0 {
			lines = append(lines, fmt.Sprintf("\nOverdue (%d):", len(overdue)))
			lines = append(lines, formatBySubjectPlain(overdue)...)
		}
		if len(upcoming) > 0 {
			lines = append(lines, fmt.Sprintf("\nUpcoming (%d):", len(upcoming)))
			lines = append(lines, formatBySubjectPlain(upcoming)...)
		}
	}

	return strings.Join(lines, "\n")
}

// FormatDueSoon builds the cross-profile urgent summary of tasks due within
// the 2-day horizon, with relative day labels. Empty string when nothing is
// due soon.
func FormatDueSoon(children []domain.ChildProfile, today time.Time) string {
	var lines []string
	for _, child := range children {
		for _, a := range child.Assignments {
			label, ok := a.DueSoonLabel(today)
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s %s: %s (%s)", bullet(a), child.Name, a.Title, label))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "<b>Due soon</b>\n" + strings.Join(lines, "\n")
}

func splitAssignments(assignments []domain.Assignment, today time.Time, opts Options) (overdue, upcoming []domain.Assignment) {
	for _, a := range assignments {
		switch {
		case a.IsOverdue(today, opts.OverdueSince):
			overdue = append(overdue, a)
		case a.IsUpcoming(today, opts.WindowDays()):
			upcoming = append(upcoming, a)
		}
	}
	return overdue, upcoming
}

func formatBySubjectHTML(assignments []domain.Assignment) []string {
	var lines []string
	for _, group := range GroupBySubject(assignments) {
		lines = append(lines, "  <b>"+group.Subject+"</b>")
		for _, a := range group.Tasks {
			title := a.Title
			if a.URL != "" {
				title = fmt.Sprintf(`<a href="%s">%s</a>`, a.URL, a.Title)
			}
			tags := ""
			if t := a.TagsString(); t != "" {
				tags = " " + t
			}
			lines = append(lines, fmt.Sprintf("    %s %s%s (due %s)", bullet(a), title, tags, a.DueDateString()))
		}
	}
	return lines
}

func formatBySubjectPlain(assignments []domain.Assignment) []string {
	var lines []string
	for _, group := range GroupBySubject(assignments) {
		lines = append(lines, "  ["+group.Subject+"]")
		for _, a := range group.Tasks {
			tag := ""
			if len(a.Tags) > 0 {
				tag = " [" + a.Tags[0] + "]"
			}
			lines = append(lines, fmt.Sprintf("    %s %s%s (%s)", bullet(a), a.Title, tag, a.DueDateString()))
		}
	}
	return lines
}

// SubjectGroup is one subject's tasks in presentation order.
type SubjectGroup struct {
	Subject string
	Tasks   []domain.Assignment
}

// GroupBySubject preserves first-seen subject order so repeated formatting of
// the same input is byte-identical. Subjectless tasks group under "Other".
func GroupBySubject(assignments []domain.Assignment) []SubjectGroup {
	index := map[string]int{}
	var groups []SubjectGroup
	for _, a := range assignments {
		subject := a.Subject
		if subject == "" {
			subject = "Other"
		}
		i, ok := index[subject]
		if !ok {
			i = len(groups)
			index[subject] = i
			groups = append(groups, SubjectGroup{Subject: subject})
		}
		groups[i].Tasks = append(groups[i].Tasks, a)
	}
	return groups
}

// Summative work gets a pin so it stands out in the list.
func bullet(a domain.Assignment) string {
	for _, t := range a.Tags {
		if t == "Summative" {
			return "\U0001f4cc"
		}
	}
	return "•"
}

func headerDate(today time.Time) string {
	return fmt.Sprintf("%s (%s)", today.Format("2006-01-02"), cjkWeekdays[today.Weekday()])
}
