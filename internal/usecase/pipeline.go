package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/ports"
	"mbnotifier/internal/report"
)

// PipelineDeps wires all driven adapters into the scrape-and-notify run.
type PipelineDeps struct {
	Source         ports.AssignmentSource
	Ignore         ports.IgnoreStore
	Snapshot       ports.SnapshotStore
	Notifiers      []ports.ReportNotifier
	Options        report.Options
	IgnorePatterns []string
	DryRun         bool
	Out            io.Writer
	Logger         *slog.Logger
}

// Pipeline implements one full notifier run: login, discover children, fetch
// and filter each child's assignments, cache the snapshot, publish.
type Pipeline struct {
	source         ports.AssignmentSource
	ignore         ports.IgnoreStore
	snapshot       ports.SnapshotStore
	notifiers      []ports.ReportNotifier
	opts           report.Options
	ignorePatterns []string
	dryRun         bool
	out            io.Writer
	logger         *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:         deps.Source,
		ignore:         deps.Ignore,
		snapshot:       deps.Snapshot,
		notifiers:      deps.Notifiers,
		opts:           deps.Options,
		ignorePatterns: deps.IgnorePatterns,
		dryRun:         deps.DryRun,
		out:            deps.Out,
		logger:         logger,
	}
}

// Run executes one scrape-and-notify cycle against the given reference day.
// A login failure aborts the run; a fetch failure for one child skips that
// child only. Every configured notifier is attempted even when one fails.
func (p *Pipeline) Run(ctx context.Context, today time.Time) error {
	if err := p.source.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	children, err := p.source.Children(ctx)
	if err != nil {
		return fmt.Errorf("discover children: %w", err)
	}
	if len(children) == 0 {
		return errors.New("no children found on parent dashboard")
	}

	ignored := map[string]string{}
	if p.ignore != nil {
		if ignored, err = p.ignore.Load(); err != nil {
			p.logger.Warn("cannot load ignore list", "error", err)
			ignored = map[string]string{}
		}
	}

	for i := range children {
		assignments, err := p.source.Assignments(ctx, children[i], today, p.opts.WindowDays())
		if err != nil {
			p.logger.Error("fetch failed, skipping child", "child", children[i].Name, "error", err)
			continue
		}
		children[i].Assignments = p.filter(assignments, ignored, children[i].Name)
	}

	if p.snapshot != nil {
		if err := p.snapshot.Save(children); err != nil {
			p.logger.Warn("cannot save children snapshot", "error", err)
		}
	}

	if p.dryRun {
		p.printDryRun(children, today)
		return nil
	}

	var errs []error
	for _, notifier := range p.notifiers {
		if err := notifier.PublishReport(ctx, children, today); err != nil {
			p.logger.Error("publish failed", "notifier", notifier.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
			continue
		}
		p.logger.Info("report published", "notifier", notifier.Name())
	}
	return errors.Join(errs...)
}

// filter drops tasks matched by config title patterns or present in the
// ignore list.
func (p *Pipeline) filter(assignments []domain.Assignment, ignored map[string]string, childName string) []domain.Assignment {
	filtered := make([]domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if p.matchesPattern(a.Title) {
			continue
		}
		if id := a.TaskID(); id != "" {
			if _, ok := ignored[id]; ok {
				continue
			}
		}
		filtered = append(filtered, a)
	}

	if removed := len(assignments) - len(filtered); removed > 0 {
		p.logger.Info("filtered ignored tasks", "child", childName, "removed", removed)
	}
	return filtered
}

func (p *Pipeline) matchesPattern(title string) bool {
	lowered := strings.ToLower(title)
	for _, pat := range p.ignorePatterns {
		if strings.Contains(lowered, pat) {
			return true
		}
	}
	return false
}

func (p *Pipeline) printDryRun(children []domain.ChildProfile, today time.Time) {
	out := p.out
	if out == nil {
		return
	}
	fmt.Fprintln(out, "--- DRY RUN (Telegram) ---")
	fmt.Fprintln(out, report.FormatHTML(children, today, p.opts))
	if summary := report.FormatDueSoon(children, today); summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, summary)
	}
	fmt.Fprintln(out, "\n[Manage Ignore List] button")
	fmt.Fprintln(out, "\n--- DRY RUN (LINE) ---")
	fmt.Fprintln(out, report.FormatPlain(children, today, p.opts))
	fmt.Fprintln(out, "--- END ---")
}
