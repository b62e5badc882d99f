package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/ports"
	"mbnotifier/internal/report"
)

const (
	sendAttempts = 3
	retryDelay   = time.Second
)

// Notifier publishes reports and drives the manage-message flow through the
// Telegram Bot API. Report sends are retried; interactive calls (answers,
// edits, deletes) are one-shot and best-effort at the call site.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	opts   report.Options
	logger *slog.Logger
}

var _ ports.ReportNotifier = (*Notifier)(nil)

// NewNotifier authorizes the bot token against the API.
func NewNotifier(token string, chatID int64, opts report.Options, logger *slog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bot: bot, chatID: chatID, opts: opts, logger: logger}, nil
}

// Name identifies the channel in pipeline logs.
func (n *Notifier) Name() string {
	return "telegram"
}

// PublishReport sends the HTML report with the manage button attached, plus
// the due-soon summary when there is one.
func (n *Notifier) PublishReport(ctx context.Context, children []domain.ChildProfile, today time.Time) error {
	text := report.FormatHTML(children, today, n.opts)
	if summary := report.FormatDueSoon(children, today); summary != "" {
		text += "\n\n" + summary
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = toMarkup(report.ManageButton())

	return n.sendWithRetry(ctx, msg)
}

// SendManage posts the interactive ignore-toggle message and returns its
// message ID so later edits can target it.
func (n *Notifier) SendManage(text string, kb report.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = toMarkup(kb)

	sent, err := n.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send manage message: %w", err)
	}
	return sent.MessageID, nil
}

// EditManage replaces the text and keyboard of an existing manage message.
func (n *Notifier) EditManage(messageID int, text string, kb report.Keyboard) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(n.chatID, messageID, text, toMarkup(kb))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(edit); err != nil {
		return fmt.Errorf("telegram: edit message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback dismisses the client-side loading indicator, optionally
// flashing a short toast.
func (n *Notifier) AnswerCallback(id, text string) error {
	if _, err := n.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

// DeleteMessage removes a message from the chat.
func (n *Notifier) DeleteMessage(messageID int) error {
	if _, err := n.bot.Request(tgbotapi.NewDeleteMessage(n.chatID, messageID)); err != nil {
		return fmt.Errorf("telegram: delete message %d: %w", messageID, err)
	}
	return nil
}

// NotifyError sends a best-effort out-of-band failure notification.
func (n *Notifier) NotifyError(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(n.chatID, "<b>ManageBac Notifier Error</b>\n\n"+message)
	msg.ParseMode = tgbotapi.ModeHTML
	return n.sendWithRetry(ctx, msg)
}

// NotifyTest sends a configuration smoke-test message.
func (n *Notifier) NotifyTest(ctx context.Context) error {
	msg := tgbotapi.NewMessage(n.chatID, "<b>ManageBac Notifier</b>\n\nTest message, configuration is working!")
	msg.ParseMode = tgbotapi.ModeHTML
	return n.sendWithRetry(ctx, msg)
}

func (n *Notifier) sendWithRetry(ctx context.Context, c tgbotapi.Chattable) error {
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if _, lastErr = n.bot.Send(c); lastErr == nil {
			return nil
		}
		n.logger.Warn("telegram send failed", "attempt", attempt, "error", lastErr)
		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryDelay):
			}
		}
	}
	return fmt.Errorf("telegram: send failed after %d attempts: %w", sendAttempts, lastErr)
}

func toMarkup(kb report.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
