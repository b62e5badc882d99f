package managebac

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type view string

const (
	viewOverdue  view = "overdue"
	viewUpcoming view = "upcoming"
)

var (
	dueFullExpr     = regexp.MustCompile(`^([A-Z][a-z]{2})\s+(\d{1,2}),\s*(\d{1,2}:\d{2}\s*[AP]M)`)
	dueDateOnlyExpr = regexp.MustCompile(`^([A-Z][a-z]{2})\s+(\d{1,2})`)
)

// parseDueDate resolves ManageBac's yearless due strings ("Feb 22, 11:55 PM",
// "Mar 3") against the reference day's year. Date-only strings normalize to
// midnight. The overdue listing never shows genuinely future dates, so a
// nominally future result there belongs to the previous year. Unparseable
// text yields nil, never an error: absent due dates are a normal case.
func parseDueDate(text string, v view, today time.Time) *time.Time {
	if text == "" {
		return nil
	}

	year := today.Year()
	var parsed time.Time
	matched := false

	if m := dueFullExpr.FindStringSubmatch(text); m != nil {
		clock := strings.ReplaceAll(m[3], " ", "")
		t, err := time.Parse("Jan 2 2006 3:04PM", fmt.Sprintf("%s %s %d %s", m[1], m[2], year, clock))
		if err == nil {
			parsed = t
			matched = true
		}
	}
	if !matched {
		m := dueDateOnlyExpr.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		t, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %s %d", m[1], m[2], year))
		if err != nil {
			return nil
		}
		parsed = t
	}

	if v == viewOverdue && dateOf(parsed).After(dateOf(today)) {
		parsed = parsed.AddDate(-1, 0, 0)
	}
	return &parsed
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
