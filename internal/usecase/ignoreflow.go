package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mbnotifier/internal/infrastructure/telegram"
	"mbnotifier/internal/ports"
	"mbnotifier/internal/report"
)

// ManageChat is the slice of chat operations the ignore flow needs.
type ManageChat interface {
	SendManage(text string, kb report.Keyboard) (int, error)
	EditManage(messageID int, text string, kb report.Keyboard) error
	AnswerCallback(id, text string) error
	DeleteMessage(messageID int) error
}

// IgnoreFlow reacts to inline-button callbacks from the daily report:
// opening the manage message, toggling tasks, closing. Failures on
// best-effort operations (delete, keyboard refresh) are logged and do not
// interrupt the flow.
type IgnoreFlow struct {
	chat     ManageChat
	ignore   ports.IgnoreStore
	snapshot ports.SnapshotStore
	opts     report.Options
	logger   *slog.Logger
	now      func() time.Time
}

var _ telegram.CallbackHandler = (*IgnoreFlow)(nil)

// NewIgnoreFlow wires the flow against the chat and the flat-file stores.
func NewIgnoreFlow(chat ManageChat, ignore ports.IgnoreStore, snapshot ports.SnapshotStore, opts report.Options, logger *slog.Logger) *IgnoreFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &IgnoreFlow{
		chat:     chat,
		ignore:   ignore,
		snapshot: snapshot,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCallback dispatches one button press.
func (f *IgnoreFlow) HandleCallback(ctx context.Context, cb telegram.Callback) {
	switch {
	case cb.Data == report.CallbackNoop:
		f.answer(cb.ID, "")
	case cb.Data == report.CallbackManage:
		f.openManage(cb)
	case cb.Data == report.CallbackDone:
		if cb.MessageID != 0 {
			if err := f.chat.DeleteMessage(cb.MessageID); err != nil {
				f.logger.Debug("cannot delete manage message", "error", err)
			}
		}
		f.answer(cb.ID, "Done")
	case strings.HasPrefix(cb.Data, report.CallbackIgnorePrefix):
		f.toggle(cb)
	default:
		f.answer(cb.ID, "Unknown action")
	}
}

func (f *IgnoreFlow) openManage(cb telegram.Callback) {
	children, err := f.snapshot.Load()
	if err != nil {
		f.logger.Error("cannot load children snapshot", "error", err)
	}
	if len(children) == 0 {
		f.answer(cb.ID, "No cached data. Run the notifier first.")
		return
	}

	ignored, err := f.ignore.Load()
	if err != nil {
		f.logger.Warn("cannot load ignore list", "error", err)
		ignored = map[string]string{}
	}

	text, kb := report.BuildManageKeyboard(children, f.now(), f.opts, ignored)
	if _, err := f.chat.SendManage(text, kb); err != nil {
		f.logger.Error("cannot send manage message", "error", err)
		f.answer(cb.ID, "Failed to open manage list")
		return
	}
	f.answer(cb.ID, "")
}

func (f *IgnoreFlow) toggle(cb telegram.Callback) {
	taskID := strings.TrimPrefix(cb.Data, report.CallbackIgnorePrefix)

	ignored, err := f.ignore.Load()
	if err != nil {
		f.logger.Error("cannot load ignore list", "error", err)
		f.answer(cb.ID, "Storage error")
		return
	}

	if _, ok := ignored[taskID]; ok {
		if _, err := f.ignore.Remove(taskID); err != nil {
			f.logger.Error("cannot un-ignore task", "task_id", taskID, "error", err)
			f.answer(cb.ID, "Storage error")
			return
		}
		f.answer(cb.ID, "Un-ignored")
	} else {
		// Recover the title from the pressed button so the ignore list
		// stays readable.
		title := report.TitleForCallback(cb.Keyboard, cb.Data)
		if title == "" {
			title = taskID
		}
		if _, err := f.ignore.Add(taskID, title); err != nil {
			f.logger.Error("cannot ignore task", "task_id", taskID, "error", err)
			f.answer(cb.ID, "Storage error")
			return
		}
		f.answer(cb.ID, "Ignored")
	}

	f.refreshKeyboard(cb)
}

// refreshKeyboard re-renders the manage message so checkmarks track the
// toggle that just happened. Best-effort.
func (f *IgnoreFlow) refreshKeyboard(cb telegram.Callback) {
	if cb.MessageID == 0 {
		return
	}
	children, err := f.snapshot.Load()
	if err != nil || len(children) == 0 {
		return
	}
	ignored, err := f.ignore.Load()
	if err != nil {
		return
	}
	text, kb := report.BuildManageKeyboard(children, f.now(), f.opts, ignored)
	if err := f.chat.EditManage(cb.MessageID, text, kb); err != nil {
		f.logger.Debug("cannot refresh manage keyboard", "error", err)
	}
}

func (f *IgnoreFlow) answer(id, text string) {
	if err := f.chat.AnswerCallback(id, text); err != nil {
		f.logger.Warn("cannot answer callback", "error", err)
	}
}
