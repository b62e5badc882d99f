package report

import (
	"fmt"
	"strings"
	"time"

	"mbnotifier/internal/domain"
)

// Callback payloads understood by the bot listener.
const (
	CallbackManage       = "manage"
	CallbackDone         = "done"
	CallbackNoop         = "noop"
	CallbackIgnorePrefix = "ign:"
)

// Button is one inline key; Data is the callback payload it sends back.
type Button struct {
	Text string
	Data string
}

// Keyboard is a chat-agnostic button grid; the Telegram adapter converts it
// to the wire format.
type Keyboard [][]Button

// ManageButton is the single button attached under the daily report.
func ManageButton() Keyboard {
	return Keyboard{{{Text: "Manage Ignore List", Data: CallbackManage}}}
}

// BuildManageKeyboard builds the interactive ignore-toggle message: a
// section-header row per child, one row per reportable task (✓ prefix when
// already ignored), and a trailing Done row. Tasks without a task ID cannot
// be toggled and are skipped.
func BuildManageKeyboard(children []domain.ChildProfile, today time.Time, opts Options, ignored map[string]string) (string, Keyboard) {
	var rows Keyboard

	for _, child := range children {
		var tasks []domain.Assignment
		for _, a := range child.Assignments {
			if a.IsOverdue(today, opts.OverdueSince) || a.IsUpcoming(today, opts.WindowDays()) {
				tasks = append(tasks, a)
			}
		}
		if len(tasks) == 0 {
			continue
		}

		rows = append(rows, []Button{{
			Text: fmt.Sprintf("--- %s ---", ShortName(child.Name)),
			Data: CallbackNoop,
		}})

		for _, a := range tasks {
			id := a.TaskID()
			if id == "" {
				continue
			}
			prefix := "    "
			if _, ok := ignored[id]; ok {
				prefix = "✓ "
			}
			rows = append(rows, []Button{{
				Text: fmt.Sprintf("%s%s: %s", prefix, truncate(a.Subject, 10), truncate(a.Title, 28)),
				Data: CallbackIgnorePrefix + id,
			}})
		}
	}

	rows = append(rows, []Button{{Text: "Done", Data: CallbackDone}})

	text := "<b>Manage Ignore List</b>\n\n" +
		"Tap a task to toggle ignore.\n" +
		"✓ = ignored (won't appear in daily report)"
	return text, rows
}

// TitleForCallback recovers a task title from the pressed keyboard row, used
// when a task is ignored for the first time. Empty when the row is missing.
func TitleForCallback(kb Keyboard, data string) string {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(b.Text), "✓"))
			}
		}
	}
	return ""
}

// ShortName cuts a child's name at the first parenthetical, keeping labels
// compact in buttons and bubble headers.
func ShortName(name string) string {
	short, _, _ := strings.Cut(name, "(")
	return strings.TrimSpace(short)
}

// truncate cuts by runes, not bytes; titles and subjects may be CJK.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
