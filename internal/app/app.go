package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mbnotifier/internal/config"
	"mbnotifier/internal/infrastructure/line"
	"mbnotifier/internal/infrastructure/managebac"
	"mbnotifier/internal/infrastructure/storage"
	"mbnotifier/internal/infrastructure/telegram"
	"mbnotifier/internal/logging"
	"mbnotifier/internal/ports"
	"mbnotifier/internal/report"
	"mbnotifier/internal/usecase"
)

// Application wires configuration into the scrape-and-notify pipeline.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	telegram *telegram.Notifier
	logger   *slog.Logger
}

// Options control run behavior from the command line.
type Options struct {
	DryRun bool
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	client, err := managebac.NewClient(cfg.Portal.BaseURL, cfg.Portal.Email, cfg.Portal.Password,
		nil, baseLogger.With("component", "managebac"))
	if err != nil {
		return nil, err
	}

	reportOpts := report.Options{
		UpcomingDays: cfg.UpcomingDays,
		OverdueSince: cfg.OverdueSinceDate(),
	}

	var notifiers []ports.ReportNotifier
	var tgNotifier *telegram.Notifier
	if cfg.TelegramEnabled() {
		token, err := cfg.BotToken()
		if err != nil {
			return nil, err
		}
		tgNotifier, err = telegram.NewNotifier(token, cfg.Notifications.Telegram.ChatID,
			reportOpts, baseLogger.With("component", "telegram"))
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tgNotifier)
	}
	if cfg.LineEnabled() {
		token, err := cfg.ChannelToken()
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, line.NewNotifier(token, cfg.Notifications.Line.GroupID,
			cfg.ChildColors(), reportOpts, baseLogger.With("component", "line")))
	}
	if len(notifiers) == 0 && !opts.DryRun {
		return nil, errors.New("no notification channel configured")
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:         client,
		Ignore:         storage.NewIgnoreStore(cfg.IgnoredPath(), baseLogger.With("component", "storage")),
		Snapshot:       storage.NewSnapshotStore(cfg.SnapshotPath()),
		Notifiers:      notifiers,
		Options:        reportOpts,
		IgnorePatterns: cfg.IgnorePatterns(),
		DryRun:         opts.DryRun,
		Out:            os.Stdout,
		Logger:         baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, pipeline: pipeline, telegram: tgNotifier, logger: baseLogger}, nil
}

// Run performs a single scrape-and-notify cycle.
func (a *Application) Run(ctx context.Context) error {
	return a.pipeline.Run(ctx, time.Now())
}

// NotifyError sends a best-effort failure notification to Telegram.
func (a *Application) NotifyError(ctx context.Context, message string) {
	if a.telegram == nil {
		return
	}
	if err := a.telegram.NotifyError(ctx, message); err != nil {
		a.logger.Error("failed to send error notification", "error", err)
	}
}

// SendTestMessage verifies the Telegram configuration end to end.
func (a *Application) SendTestMessage(ctx context.Context) error {
	if a.telegram == nil {
		return errors.New("telegram is not configured")
	}
	return a.telegram.NotifyTest(ctx)
}

// NewListener wires the callback-handling bot listener daemon.
func NewListener(cfg config.Config, baseLogger *slog.Logger) (*telegram.Listener, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if !cfg.TelegramEnabled() {
		return nil, errors.New("telegram is not configured")
	}

	token, err := cfg.BotToken()
	if err != nil {
		return nil, err
	}
	notifier, err := telegram.NewNotifier(token, cfg.Notifications.Telegram.ChatID,
		report.Options{UpcomingDays: cfg.UpcomingDays, OverdueSince: cfg.OverdueSinceDate()},
		baseLogger.With("component", "telegram"))
	if err != nil {
		return nil, fmt.Errorf("listener setup: %w", err)
	}

	flow := usecase.NewIgnoreFlow(
		notifier,
		storage.NewIgnoreStore(cfg.IgnoredPath(), baseLogger.With("component", "storage")),
		storage.NewSnapshotStore(cfg.SnapshotPath()),
		report.Options{UpcomingDays: cfg.UpcomingDays, OverdueSince: cfg.OverdueSinceDate()},
		baseLogger.With("component", "ignoreflow"),
	)

	return telegram.NewListener(notifier, flow, baseLogger.With("component", "listener")), nil
}
