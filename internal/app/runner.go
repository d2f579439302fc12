package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
)

// Runner executes a BackupJob as an ordered list of steps, one per
// destination, local disks strictly before cloud remotes.
type Runner struct {
	engine      domain.SnapshotEngine
	sync        domain.SyncTool
	notifier    domain.Notifier
	prompter    domain.Prompter
	config      *config.Config
	logger      *slog.Logger
	hostname    string
	interactive bool
	progressOut io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEngine sets the snapshot engine.
func WithEngine(e domain.SnapshotEngine) RunnerOption {
	return func(r *Runner) {
		r.engine = e
	}
}

// WithSyncTool sets the sync tool.
func WithSyncTool(s domain.SyncTool) RunnerOption {
	return func(r *Runner) {
		r.sync = s
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithPrompter sets the prompter used for per-step confirmations.
func WithPrompter(p domain.Prompter) RunnerOption {
	return func(r *Runner) {
		r.prompter = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithInteractive enables per-step confirmations and the progress spinner.
// Non-interactive runs never prompt and assume yes.
func WithInteractive(interactive bool) RunnerOption {
	return func(r *Runner) {
		r.interactive = interactive
	}
}

// WithProgressOutput sets where the spinner is drawn.
func WithProgressOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progressOut = w
	}
}

// NewRunner creates a new Runner.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	hostname, _ := os.Hostname()

	r := &Runner{
		config:      cfg,
		logger:      slog.Default(),
		hostname:    hostname,
		notifier:    &domain.NopNotifier{},
		progressOut: os.Stderr,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// step is one delegated backup against one destination.
type step struct {
	dest   domain.Destination
	target string
}

// buildPlan resolves each destination to its concrete target. Destinations
// must already be sorted disk-first.
func (r *Runner) buildPlan(job *domain.BackupJob) []step {
	plan := make([]step, 0, len(job.Destinations))
	for _, dest := range job.Destinations {
		plan = append(plan, step{dest: dest, target: r.targetFor(job, dest)})
	}
	return plan
}

// targetFor composes the backup target for a destination. Secure cloud
// targets use restic's rclone backend syntax; simple cloud targets are plain
// rclone remote references.
func (r *Runner) targetFor(job *domain.BackupJob, dest domain.Destination) string {
	prefix := job.Prefix
	if prefix == "" {
		prefix = r.config.DirNameFor(job.Mode == domain.ModeSecure)
	}

	suffix := job.ProjectName + "_backup"
	if job.Mode == domain.ModeSecure {
		suffix = job.ProjectName + "_encrypted"
	}

	if dest.Kind == domain.DestinationDisk {
		return filepath.Join(r.config.MediaRoot, dest.Name, prefix, suffix)
	}

	remotePath := path.Join(prefix, suffix)
	if job.Mode == domain.ModeSecure {
		return fmt.Sprintf("rclone:%s:%s", dest.Name, remotePath)
	}
	return fmt.Sprintf("%s:%s", dest.Name, remotePath)
}

// Run executes the job. Steps run strictly sequentially; a failed step halts
// the remaining ones unless continue_on_error is set. The returned result
// always contains every executed step; the error return is reserved for
// preconditions (invalid job, missing dependency, unknown remote).
func (r *Runner) Run(ctx context.Context, job *domain.BackupJob) (*domain.RunResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkDependencies(ctx, job); err != nil {
		return nil, err
	}

	if _, err := os.Stat(job.Source); err != nil {
		return nil, &domain.SourceNotFoundError{Path: job.Source}
	}

	job.SortDestinations()
	plan := r.buildPlan(job)
	result := domain.NewRunResult(job, r.config.DryRun)

	r.logger.Info("starting backup run",
		"mode", job.Mode,
		"source", job.Source,
		"destinations", len(plan),
		"dry_run", r.config.DryRun,
	)

	for i, st := range plan {
		var sr *domain.StepResult
		if job.Mode == domain.ModeSecure {
			sr = r.runSecureStep(ctx, job, st)
		} else {
			sr = r.runSimpleStep(ctx, job, st)
		}
		result.AddStep(sr)

		if sr.Success {
			r.logger.Info("backup step completed", "destination", st.dest.String(), "target", sr.Target, "duration", sr.Duration)
			continue
		}

		r.logger.Error("backup step failed", "destination", st.dest.String(), "error", sr.Error)
		if !r.config.ContinueOnError && i < len(plan)-1 {
			for _, rest := range plan[i+1:] {
				result.Skipped = append(result.Skipped, rest.dest)
			}
			r.logger.Warn("halting remaining destinations after failure", "skipped", len(result.Skipped))
			break
		}
	}

	result.Complete()

	if err := r.sendNotification(ctx, result); err != nil {
		r.logger.Error("failed to send notification", "error", err)
	}

	r.logger.Info("backup run completed", "success", result.Success, "duration", result.Duration)
	return result, nil
}

// checkDependencies verifies the external tools the job needs before any of
// them is invoked.
func (r *Runner) checkDependencies(ctx context.Context, job *domain.BackupJob) error {
	hasCloud := false
	for _, dest := range job.Destinations {
		if dest.Kind == domain.DestinationCloud {
			hasCloud = true
		}
	}

	if job.Mode == domain.ModeSecure {
		if err := r.engine.Validate(ctx); err != nil {
			return err
		}
	}
	if job.Mode == domain.ModeSimple || hasCloud {
		if err := r.sync.Validate(ctx); err != nil {
			return err
		}
	}

	if hasCloud {
		remotes, err := r.sync.ListRemotes(ctx)
		if err != nil {
			return err
		}
		configured := make(map[string]bool, len(remotes))
		for _, name := range remotes {
			configured[name] = true
		}
		for _, dest := range job.Destinations {
			if dest.Kind == domain.DestinationCloud && !configured[dest.Name] {
				return &domain.DestinationUnreachableError{
					Destination: dest.String(),
					Reason:      "rclone remote is not configured (run 'rclone config')",
				}
			}
		}
	}

	return nil
}

// runSecureStep backs up to one destination via restic: probe the
// repository, initialize it on first use, then snapshot.
func (r *Runner) runSecureStep(ctx context.Context, job *domain.BackupJob, st step) *domain.StepResult {
	sr := domain.NewStepResult(st.dest, st.target, "restic")

	if r.config.DryRun {
		r.logger.Info("dry run: skipping secure backup", "target", st.target)
		sr.Complete(true, nil)
		return sr
	}

	exists, err := r.engine.RepoExists(ctx, st.target, job.Password)
	if err != nil {
		sr.Complete(false, err)
		return sr
	}

	kind := "incremental"
	if !exists {
		kind = "initial"
	}

	if r.interactive {
		ok, err := r.prompter.Confirm(fmt.Sprintf("Proceed with %s backup to %s?", kind, st.dest.Name))
		if err != nil {
			sr.Complete(false, err)
			return sr
		}
		if !ok {
			sr.Complete(false, domain.ErrAborted)
			return sr
		}
	}

	if !exists {
		err := r.withSpinner("Initializing repository on "+st.dest.Name, func() error {
			_, err := r.engine.Init(ctx, st.target, job.Password)
			return err
		})
		if err != nil {
			sr.Complete(false, err)
			return sr
		}
	}

	var out []byte
	err = r.withSpinner(fmt.Sprintf("%s backup to %s", strings.ToUpper(kind[:1])+kind[1:], st.dest.Name), func() error {
		var err error
		out, err = r.engine.Backup(ctx, job.Source, st.target, job.Password)
		return err
	})
	if err != nil {
		sr.Complete(false, err)
		return sr
	}

	sr.Summary = resticSummary(out)
	sr.Complete(true, nil)
	return sr
}

// runSimpleStep copies to one destination via rclone. An existing target
// folder is merged into by default; declining the merge redirects the copy to
// a dated duplicate folder so prior data is never touched.
func (r *Runner) runSimpleStep(ctx context.Context, job *domain.BackupJob, st step) *domain.StepResult {
	sr := domain.NewStepResult(st.dest, st.target, "rclone")

	if r.config.DryRun {
		r.logger.Info("dry run: skipping simple copy", "target", st.target)
		sr.Complete(true, nil)
		return sr
	}

	target := st.target

	exists, err := r.sync.DirExists(ctx, target)
	if err != nil {
		sr.Complete(false, err)
		return sr
	}

	if exists && r.interactive {
		merge, err := r.prompter.Confirm(fmt.Sprintf("A folder already exists at %s. Merge/update files into it? (N creates a duplicate folder)", target))
		if err != nil {
			sr.Complete(false, err)
			return sr
		}
		if !merge {
			target = target + "_duplicated_" + time.Now().Format("20060102")
			sr.Target = target
			r.logger.Info("using duplicate destination folder", "target", target)
		}
	}

	if r.interactive {
		ok, err := r.prompter.Confirm("Proceed with simple copy to " + st.dest.Name + "?")
		if err != nil {
			sr.Complete(false, err)
			return sr
		}
		if !ok {
			sr.Complete(false, domain.ErrAborted)
			return sr
		}
	}

	var out []byte
	err = r.withSpinner("Simple copy to "+st.dest.Name, func() error {
		var err error
		out, err = r.sync.Copy(ctx, job.Source, target)
		return err
	})
	if err != nil {
		sr.Complete(false, err)
		return sr
	}

	sr.Summary = rcloneSummary(out)
	sr.Complete(true, nil)
	return sr
}

// withSpinner runs fn behind a terminal spinner in interactive mode.
func (r *Runner) withSpinner(description string, fn func() error) error {
	if !r.interactive {
		return fn()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(r.progressOut),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	err := fn()
	close(done)
	_ = bar.Finish()
	fmt.Fprintln(r.progressOut)
	return err
}

// sendNotification reports the run outcome per the configured level.
func (r *Runner) sendNotification(ctx context.Context, result *domain.RunResult) error {
	if r.notifier == nil {
		return nil
	}

	level := r.config.Notify.Level

	var notification *domain.Notification
	switch {
	case !result.Success && (level == config.NotifyError || level == config.NotifyAlways):
		notification = domain.ErrorNotification("NAS backup failed", r.buildErrorMessage(result))
	case result.Success && level == config.NotifyAlways:
		notification = domain.InfoNotification("NAS backup completed", r.buildSuccessMessage(result))
	default:
		return nil
	}

	return r.notifier.Notify(ctx, notification)
}

func (r *Runner) buildErrorMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup of %s failed on %s.\n", result.Source, r.hostname)

	for _, step := range result.Steps {
		if !step.Success {
			msg += fmt.Sprintf("%s: %s\n", step.Destination, step.Error)
		}
	}
	for _, dest := range result.Skipped {
		msg += fmt.Sprintf("%s: skipped\n", dest)
	}
	for _, e := range result.Errors {
		msg += fmt.Sprintf("Error: %s\n", e)
	}

	return msg
}

func (r *Runner) buildSuccessMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup of %s completed on %s.\n", result.Source, r.hostname)

	for _, step := range result.Steps {
		msg += fmt.Sprintf("%s -> %s\n", step.Destination, step.Target)
	}
	msg += fmt.Sprintf("Duration: %s", result.Duration.Round(100*time.Millisecond))

	return msg
}

// resticSummary picks the closing statistics lines out of restic output.
func resticSummary(out []byte) []string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}

	var summary []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, keyword := range []string{"files", "dirs", "added", "processed", "snapshot"} {
			if strings.Contains(lower, keyword) {
				summary = append(summary, strings.TrimSpace(line))
				break
			}
		}
	}
	return summary
}

// rcloneSummary picks the transfer statistics lines out of rclone output.
func rcloneSummary(out []byte) []string {
	var summary []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.Contains(line, "Transferred") || strings.Contains(line, "Errors") || strings.Contains(line, "Checks") {
			summary = append(summary, strings.TrimSpace(line))
		}
	}
	if len(summary) > 3 {
		summary = summary[len(summary)-3:]
	}
	return summary
}
