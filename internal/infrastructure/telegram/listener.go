package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mbnotifier/internal/report"
)

const pollTimeout = 30

// Callback is an inline-button press, decoupled from the wire types so the
// handler can be tested without the bot API.
type Callback struct {
	ID        string
	Data      string
	MessageID int
	Keyboard  report.Keyboard
}

// CallbackHandler processes one button press at a time.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, cb Callback)
}

// Listener long-polls getUpdates for callback queries and hands them to the
// handler sequentially. One outstanding network call at a time, no other
// background work.
type Listener struct {
	notifier *Notifier
	handler  CallbackHandler
	logger   *slog.Logger
}

// NewListener reuses the notifier's authorized bot connection.
func NewListener(notifier *Notifier, handler CallbackHandler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{notifier: notifier, handler: handler, logger: logger}
}

// Run polls until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = []string{"callback_query"}

	updates := l.notifier.bot.GetUpdatesChan(cfg)
	l.logger.Info("bot listener started", "bot", l.notifier.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			l.notifier.bot.StopReceivingUpdates()
			l.logger.Info("stop signal received, shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery == nil {
				continue
			}
			l.handler.HandleCallback(ctx, fromCallbackQuery(update.CallbackQuery))
		}
	}
}

func fromCallbackQuery(q *tgbotapi.CallbackQuery) Callback {
	cb := Callback{ID: q.ID, Data: q.Data}
	if q.Message == nil {
		return cb
	}
	cb.MessageID = q.Message.MessageID
	if q.Message.ReplyMarkup == nil {
		return cb
	}
	for _, row := range q.Message.ReplyMarkup.InlineKeyboard {
		buttons := make([]report.Button, 0, len(row))
		for _, b := range row {
			data := ""
			if b.CallbackData != nil {
				data = *b.CallbackData
			}
			buttons = append(buttons, report.Button{Text: b.Text, Data: data})
		}
		cb.Keyboard = append(cb.Keyboard, buttons)
	}
	return cb
}
