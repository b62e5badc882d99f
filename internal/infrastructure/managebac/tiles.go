package managebac

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mbnotifier/internal/domain"
)

var (
	doubledProgramExpr = regexp.MustCompile(`^IB MYP\s+IB MYP\s+`)
	programExpr        = regexp.MustCompile(`^IB MYP\s+`)
	gradeSuffixExpr    = regexp.MustCompile(`\s*\(Grade \d+\)\s*[A-Z]?$`)
)

// parseTasks extracts assignments from a tasks_and_deadlines listing page.
func (c *Client) parseTasks(doc *goquery.Document, childName string, v view, today time.Time) []domain.Assignment {
	container := doc.Find(".js-tasks").First()
	if container.Length() == 0 {
		c.logger.Warn("task container not found", "view", string(v))
		return nil
	}

	var tasks []domain.Assignment
	container.Find(".f-tile--inline").Each(func(_ int, tile *goquery.Selection) {
		if task, ok := c.parseTaskTile(tile, childName, v, today); ok {
			tasks = append(tasks, task)
		}
	})
	return tasks
}

// parseTaskTile reads one f-tile--inline element. Tiles without a title link
// are decorative, not tasks, and are skipped silently. Every other field
// degrades to its zero value when the markup does not cooperate.
func (c *Client) parseTaskTile(tile *goquery.Selection, childName string, v view, today time.Time) (domain.Assignment, bool) {
	titleLink := tile.Find("a.f-tile__title-link").First()
	if titleLink.Length() == 0 {
		return domain.Assignment{}, false
	}
	title := strings.TrimSpace(titleLink.Text())
	href, _ := titleLink.Attr("href")
	taskURL := c.resolveURL(href)

	subject := ""
	if classLink := tile.Find("a.f-truncate-item.link-dark").First(); classLink.Length() > 0 {
		subject = cleanSubject(strings.TrimSpace(classLink.Text()))
	}

	var tags []string
	tile.Find("span.badge-label").Each(func(_ int, badge *goquery.Selection) {
		if text := strings.TrimSpace(badge.Text()); text != "" {
			tags = append(tags, text)
		}
	})

	// First span in the description block that resolves to a date wins.
	var dueDate *time.Time
	tile.Find(".f-tile__description").First().Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if parsed := parseDueDate(strings.TrimSpace(span.Text()), v, today); parsed != nil {
			dueDate = parsed
			return false
		}
		return true
	})

	status := domain.StatusPending
	if score := tile.Find("[class*='f-task-score--']").First(); score.Length() > 0 {
		classes, _ := score.Attr("class")
		switch {
		case strings.Contains(classes, "not-submitted"):
			status = domain.StatusNotSubmitted
		case strings.Contains(classes, "not-assessed"):
			status = domain.StatusNotAssessed
		case strings.Contains(classes, "submitted"):
			status = domain.StatusSubmitted
		case containsAny(classes, "graded", "assessed", "criteria", "assessment"):
			status = domain.StatusGraded
		}
	}

	// The score label text has been observed more reliable than the class
	// marker; it overrides when both are present.
	if body := tile.Find(".f-task-score__body p").First(); body.Length() > 0 {
		text := strings.ToLower(strings.TrimSpace(body.Text()))
		switch {
		case strings.Contains(text, "not submitted"):
			status = domain.StatusNotSubmitted
		case strings.Contains(text, "not assessed"):
			status = domain.StatusNotAssessed
		case strings.Contains(text, "submitted"):
			status = domain.StatusSubmitted
		}
	}

	// The overdue listing is authoritative even when the tile marker is
	// ambiguous.
	if v == viewOverdue && (status == domain.StatusNotSubmitted || status == domain.StatusPending) {
		status = domain.StatusOverdue
	}

	return domain.Assignment{
		Title:     title,
		Subject:   subject,
		DueDate:   dueDate,
		Status:    status,
		ChildName: childName,
		URL:       taskURL,
		Tags:      tags,
	}, true
}

// cleanSubject strips the curriculum-program prefix (sometimes doubled) and
// the trailing grade-level parenthetical from a class name.
func cleanSubject(subject string) string {
	subject = doubledProgramExpr.ReplaceAllString(subject, "")
	subject = programExpr.ReplaceAllString(subject, "")
	subject = gradeSuffixExpr.ReplaceAllString(subject, "")
	return subject
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
