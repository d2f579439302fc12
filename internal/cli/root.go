// Package cli provides the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/daurydicaprio/nasback/internal/app"
	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/executor"
	"github.com/daurydicaprio/nasback/internal/http"
	"github.com/daurydicaprio/nasback/internal/notify"
	"github.com/daurydicaprio/nasback/internal/prompt"
	"github.com/daurydicaprio/nasback/internal/slug"
	"github.com/daurydicaprio/nasback/pkg/version"
)

var (
	cfgFile  string
	dryRun   bool
	logLevel string

	nonInteractive  bool
	sourceFlag      string
	destFlags       []string
	secureFlag      bool
	simpleFlag      bool
	continueOnError bool
	destPrefix      string
)

// NewRootCmd creates the root command. Without a subcommand it runs a backup:
// interactively by default, or driven entirely by flags with --non-interactive.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nasback",
		Short: "Dual-purpose NAS backup tool",
		Long: `nasback backs up a directory to a local drive and/or a cloud remote.

Secure backups are encrypted, versioned restic snapshots; simple backups are
plain incremental rclone copies. Run without flags for the interactive flow,
or with --non-interactive for scheduled invocations.`,
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
		RunE:         runBackup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate operations without invoking restic or rclone")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Non-interactive run flags
	rootCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "run without prompts, driven by flags")
	rootCmd.Flags().StringVar(&sourceFlag, "source", "", "source directory to back up")
	rootCmd.Flags().StringArrayVar(&destFlags, "dest", nil, "destination: mounted disk name or rclone remote name (repeatable)")
	rootCmd.Flags().BoolVar(&secureFlag, "secure", false, "secure mode: encrypted restic snapshot")
	rootCmd.Flags().BoolVar(&simpleFlag, "simple", false, "simple mode: plain incremental rclone copy")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep backing up remaining destinations after a failure")
	rootCmd.Flags().StringVar(&destPrefix, "dest-prefix", "", "destination subdirectory (max 2 levels)")

	// Add subcommands
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewInstallCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig sets up basic logging to stderr before the config is loaded.
func initConfig() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging configures logging based on the loaded config.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level)
	// CLI flag overrides config
	if logLevel != "" {
		level = parseLevel(logLevel)
	}

	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		dir := filepath.Dir(cfg.Log.Output)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}

		// Use lumberjack for log rotation
		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// loadConfig loads the application configuration.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()

	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}

	// Apply CLI flag overrides
	if dryRun {
		loader.Set("dry_run", true)
	}
	if logLevel != "" {
		loader.Set("log.level", logLevel)
	}
	if continueOnError {
		loader.Set("continue_on_error", true)
	}

	return loader.Load()
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := executor.NewRestic(execOpts(cfg.Restic, logger)...)
	syncTool := executor.NewRclone(execOpts(cfg.Rclone, logger)...)

	runnerOpts := []app.RunnerOption{
		app.WithEngine(engine),
		app.WithSyncTool(syncTool),
		app.WithLogger(logger),
	}

	if cfg.Notify.Enabled {
		httpClient := http.NewClient(
			http.WithRetryConfig(http.RetryConfig{
				MaxAttempts:  cfg.Retry.MaxAttempts,
				InitialDelay: cfg.Retry.InitialDelay,
				MaxDelay:     cfg.Retry.MaxDelay,
			}),
			http.WithLogger(logger),
		)
		notifier := notify.NewAppriseClient(cfg.Notify.URL, cfg.Notify.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		)
		runnerOpts = append(runnerOpts, app.WithNotifier(notifier))
	}

	var (
		job      *domain.BackupJob
		prompter domain.Prompter
	)

	if nonInteractive {
		job, err = jobFromFlags(ctx, cfg, syncTool)
		if err != nil {
			return err
		}
	} else {
		prompter = prompt.NewTerminal(os.Stdin, os.Stdout)
		runnerOpts = append(runnerOpts, app.WithPrompter(prompter), app.WithInteractive(true))

		flow := app.NewFlow(cfg, prompter, engine, syncTool, app.WithFlowLogger(logger))
		job, err = flow.BuildJob(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrAborted) {
				fmt.Println("Cancelled.")
				return nil
			}
			return err
		}
	}

	runner := app.NewRunner(cfg, runnerOpts...)
	result, err := runner.Run(ctx, job)
	if err != nil {
		return err
	}

	printReport(os.Stdout, job, result)

	// Self-install is offered only interactively, and only after a run with
	// no failures.
	if prompter != nil && result.Success {
		if stateDir, err := config.EnsureStateDir(); err == nil {
			installer := app.NewInstaller(cfg.Install, stateDir, prompter,
				app.WithInstallerLogger(logger))
			if err := installer.Offer(result); err != nil && !errors.Is(err, domain.ErrAborted) {
				logger.Warn("self-install offer failed", "error", err)
			}
		}
	}

	if !result.Success {
		return fmt.Errorf("backup completed with errors")
	}
	return nil
}

// jobFromFlags builds a BackupJob for scheduled, prompt-free invocations.
func jobFromFlags(ctx context.Context, cfg *config.Config, syncTool domain.SyncTool) (*domain.BackupJob, error) {
	if secureFlag == simpleFlag {
		return nil, &domain.InvalidInputError{Field: "mode", Reason: "exactly one of --secure or --simple is required"}
	}
	mode := domain.ModeSimple
	if secureFlag {
		mode = domain.ModeSecure
	}

	if sourceFlag == "" {
		return nil, &domain.InvalidInputError{Field: "source", Reason: "--source is required with --non-interactive"}
	}
	source, err := filepath.Abs(sourceFlag)
	if err != nil {
		return nil, &domain.InvalidInputError{Field: "source", Reason: err.Error()}
	}
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return nil, &domain.SourceNotFoundError{Path: source}
	}

	if len(destFlags) == 0 {
		return nil, &domain.InvalidInputError{Field: "destinations", Reason: "at least one --dest is required with --non-interactive"}
	}

	destinations, err := classifyDestinations(ctx, cfg, syncTool, destFlags)
	if err != nil {
		return nil, err
	}

	job := &domain.BackupJob{
		Source:       source,
		ProjectName:  slug.Normalize(filepath.Base(source)),
		Mode:         mode,
		Prefix:       strings.Trim(destPrefix, "/"),
		Destinations: destinations,
	}

	if mode == domain.ModeSecure {
		job.Password = os.Getenv("RESTIC_PASSWORD")
		if job.Password == "" {
			return nil, &domain.InvalidInputError{
				Field:  "password",
				Reason: "secure non-interactive runs require RESTIC_PASSWORD in the environment",
			}
		}
	}

	job.SortDestinations()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// classifyDestinations resolves each --dest name: a directory under the
// media root is a disk, a configured rclone remote is a cloud destination.
func classifyDestinations(ctx context.Context, cfg *config.Config, syncTool domain.SyncTool, names []string) ([]domain.Destination, error) {
	var remotes map[string]bool

	destinations := make([]domain.Destination, 0, len(names))
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(cfg.MediaRoot, name)); err == nil && info.IsDir() {
			destinations = append(destinations, domain.Destination{Kind: domain.DestinationDisk, Name: name})
			continue
		}

		if remotes == nil {
			listed, err := syncTool.ListRemotes(ctx)
			if err != nil {
				return nil, err
			}
			remotes = make(map[string]bool, len(listed))
			for _, r := range listed {
				remotes[r] = true
			}
		}
		if remotes[name] {
			destinations = append(destinations, domain.Destination{Kind: domain.DestinationCloud, Name: name})
			continue
		}

		return nil, &domain.DestinationUnreachableError{
			Destination: name,
			Reason:      fmt.Sprintf("not a mounted disk under %s and not a configured rclone remote", cfg.MediaRoot),
		}
	}

	return destinations, nil
}

func execOpts(tool config.ToolConfig, logger *slog.Logger) []executor.Option {
	opts := []executor.Option{executor.WithLogger(logger)}
	if tool.Binary != "" {
		opts = append(opts, executor.WithBinaryPath(tool.Binary))
	}
	return opts
}

// printReport writes the end-of-run summary.
func printReport(w io.Writer, job *domain.BackupJob, result *domain.RunResult) {
	fmt.Fprintf(w, "\nOperation finished in %s\n", result.Duration.Round(time.Second))
	fmt.Fprintf(w, "Source: %s\n", result.Source)

	for i, step := range result.Steps {
		status := "ok"
		if !step.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "\n--- Backup #%d: %s (%s) ---\n", i+1, step.Destination, status)
		fmt.Fprintf(w, "  Target: %s\n", step.Target)
		for _, line := range step.Summary {
			fmt.Fprintf(w, "    %s\n", line)
		}
		if !step.Success {
			fmt.Fprintf(w, "  Error: %s\n", step.Error)
		}
	}

	for _, dest := range result.Skipped {
		fmt.Fprintf(w, "\n--- Skipped: %s ---\n", dest)
	}

	if job.PasswordGenerated {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("-", 60))
		fmt.Fprintln(w, "IMPORTANT RECOVERY PASSWORD")
		fmt.Fprintf(w, "  Password: %s\n", job.Password)
		fmt.Fprintln(w, "  Save it in a password manager; without it the encrypted")
		fmt.Fprintln(w, "  backups cannot be restored.")
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}
}
