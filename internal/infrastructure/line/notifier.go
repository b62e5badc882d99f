package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/ports"
	"mbnotifier/internal/report"
)

const defaultAPIBase = "https://api.line.me/v2/bot"

const (
	colorRed    = "#DC3545"
	colorOrange = "#FD7E14"
	colorGray   = "#6C757D"

	defaultHeaderColor = "#0D6EFD"
)

// Notifier pushes the assignment report to a LINE group as a Flex Message
// carousel, one bubble per child.
type Notifier struct {
	channelToken string
	groupID      string
	childColors  map[string]string
	opts         report.Options
	apiBase      string
	httpClient   *http.Client
	logger       *slog.Logger
}

var _ ports.ReportNotifier = (*Notifier)(nil)

// NewNotifier registers the channel token and target group.
func NewNotifier(channelToken, groupID string, childColors map[string]string, opts report.Options, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		channelToken: channelToken,
		groupID:      groupID,
		childColors:  childColors,
		opts:         opts,
		apiBase:      defaultAPIBase,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// Name identifies the channel in pipeline logs.
func (n *Notifier) Name() string {
	return "line"
}

// PublishReport builds one bubble per child with something to report and
// pushes the carousel. Nothing to report means no push at all.
func (n *Notifier) PublishReport(ctx context.Context, children []domain.ChildProfile, today time.Time) error {
	var bubbles []map[string]any
	for _, child := range children {
		if bubble := childBubble(child, today, n.opts, n.childColors); bubble != nil {
			bubbles = append(bubbles, bubble)
		}
	}
	if len(bubbles) == 0 {
		n.logger.Info("nothing to report, skipping LINE push")
		return nil
	}

	message := map[string]any{
		"type":    "flex",
		"altText": "ManageBac Assignment Report",
		"contents": map[string]any{
			"type":     "carousel",
			"contents": bubbles,
		},
	}
	return n.push(ctx, []map[string]any{message})
}

func (n *Notifier) push(ctx context.Context, messages []map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"to":       n.groupID,
		"messages": messages,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiBase+"/message/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.channelToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("line error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	n.logger.Info("LINE message sent")
	return nil
}

// childBubble returns nil when the child has nothing overdue or upcoming.
func childBubble(child domain.ChildProfile, today time.Time, opts report.Options, childColors map[string]string) map[string]any {
	var overdue, upcoming []domain.Assignment
	for _, a := range child.Assignments {
		switch {
		case a.IsOverdue(today, opts.OverdueSince):
			overdue = append(overdue, a)
		case a.IsUpcoming(today, opts.WindowDays()):
			upcoming = append(upcoming, a)
		}
	}
	if len(overdue) == 0 && len(upcoming) == 0 {
		return nil
	}

	headerColor := defaultHeaderColor
	if color, ok := childColors[child.ID]; ok {
		headerColor = color
	}

	var body []map[string]any
	if len(overdue) > 0 {
		body = append(body, sectionHeader(fmt.Sprintf("Overdue (%d)", len(overdue)), colorRed))
		body = append(body, taskListBySubject(overdue)...)
	}
	if len(upcoming) > 0 {
		if len(overdue) > 0 {
			body = append(body, map[string]any{"type": "separator", "margin": "lg"})
		}
		body = append(body, sectionHeader(fmt.Sprintf("Upcoming (%d)", len(upcoming)), colorOrange))
		body = append(body, taskListBySubject(upcoming)...)
	}

	return map[string]any{
		"type": "bubble",
		"size": "mega",
		"header": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []map[string]any{
				{
					"type":   "text",
					"text":   report.ShortName(child.Name),
					"weight": "bold",
					"size":   "lg",
					"color":  "#FFFFFF",
				},
			},
			"backgroundColor": headerColor,
			"paddingAll":      "15px",
		},
		"body": map[string]any{
			"type":       "box",
			"layout":     "vertical",
			"contents":   body,
			"spacing":    "sm",
			"paddingAll": "15px",
		},
	}
}

func sectionHeader(text, color string) map[string]any {
	return map[string]any{
		"type":   "text",
		"text":   text,
		"weight": "bold",
		"size":   "md",
		"color":  color,
		"margin": "lg",
	}
}

func taskListBySubject(assignments []domain.Assignment) []map[string]any {
	var components []map[string]any
	for _, group := range report.GroupBySubject(assignments) {
		components = append(components, map[string]any{
			"type":   "text",
			"text":   group.Subject,
			"weight": "bold",
			"size":   "sm",
			"color":  "#333333",
			"margin": "md",
		})
		for _, a := range group.Tasks {
			tag := ""
			if len(a.Tags) > 0 {
				tag = " [" + a.Tags[0] + "]"
			}
			bullet := "•"
			for _, t := range a.Tags {
				if t == "Summative" {
					bullet = "\U0001f4cc"
				}
			}
			components = append(components, map[string]any{
				"type":   "box",
				"layout": "horizontal",
				"contents": []map[string]any{
					{
						"type":    "text",
						"text":    bullet,
						"size":    "xs",
						"flex":    0,
						"gravity": "top",
					},
					{
						"type":   "box",
						"layout": "vertical",
						"flex":   1,
						"contents": []map[string]any{
							{
								"type": "text",
								"text": a.Title + tag,
								"size": "xs",
								"wrap": true,
							},
							{
								"type":  "text",
								"text":  a.DueDateString(),
								"size":  "xxs",
								"color": colorGray,
							},
						},
					},
				},
				"spacing": "sm",
				"margin":  "sm",
			})
		}
	}
	return components
}
