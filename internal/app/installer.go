package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
)

// declineMarkerName records that the user declined the self-install offer,
// so later runs stop asking.
const declineMarkerName = "install_declined"

// InstallState tracks the self-install decision within one run.
type InstallState string

const (
	// StateNotOffered means the offer was never shown.
	StateNotOffered InstallState = "not_offered"
	// StateOffered means the offer was shown and is awaiting a decision.
	StateOffered InstallState = "offered"
	// StateAccepted means the user accepted and the install ran.
	StateAccepted InstallState = "accepted"
	// StateDeclined means the user declined; the original invocation method
	// remains the only entry point.
	StateDeclined InstallState = "declined"
)

// Installer offers to install the running executable as a named command on
// the user's PATH after a fully successful run.
type Installer struct {
	cfg      config.InstallConfig
	stateDir string
	prompter domain.Prompter
	logger   *slog.Logger
	out      io.Writer
	state    InstallState

	executable func() (string, error)
	pathEnv    string
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithInstallerLogger sets the logger.
func WithInstallerLogger(l *slog.Logger) InstallerOption {
	return func(i *Installer) {
		i.logger = l
	}
}

// WithInstallerOutput sets where user-facing install messages are written.
func WithInstallerOutput(w io.Writer) InstallerOption {
	return func(i *Installer) {
		i.out = w
	}
}

func withExecutable(fn func() (string, error)) InstallerOption {
	return func(i *Installer) {
		i.executable = fn
	}
}

func withPathEnv(pathEnv string) InstallerOption {
	return func(i *Installer) {
		i.pathEnv = pathEnv
	}
}

// NewInstaller creates a new Installer. stateDir holds the decline marker.
func NewInstaller(cfg config.InstallConfig, stateDir string, prompter domain.Prompter, opts ...InstallerOption) *Installer {
	i := &Installer{
		cfg:        cfg,
		stateDir:   stateDir,
		prompter:   prompter,
		logger:     slog.Default(),
		out:        os.Stdout,
		state:      StateNotOffered,
		executable: os.Executable,
		pathEnv:    os.Getenv("PATH"),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// State returns the current install decision state.
func (i *Installer) State() InstallState {
	return i.state
}

// InstallPath returns the path the command is installed to.
func (i *Installer) InstallPath() string {
	return filepath.Join(i.cfg.Dir, i.cfg.CommandName)
}

func (i *Installer) markerPath() string {
	return filepath.Join(i.stateDir, declineMarkerName)
}

// Offer runs the post-run self-install decision. The offer appears only
// after a run with no failures, is suppressed once declined, and a failed
// install never changes the run's outcome.
func (i *Installer) Offer(result *domain.RunResult) error {
	if result == nil || !result.Success || !i.cfg.Enabled {
		return nil
	}
	if _, err := os.Stat(i.markerPath()); err == nil {
		i.logger.Debug("install previously declined, not offering")
		return nil
	}

	installed := false
	if _, err := os.Stat(i.InstallPath()); err == nil {
		installed = true
	}

	i.state = StateOffered

	question := fmt.Sprintf("Install this tool as the %q command?", i.cfg.CommandName)
	if installed {
		question = fmt.Sprintf("Command %q is already installed. Update it to this version?", i.cfg.CommandName)
	}

	ok, err := i.prompter.Confirm(question)
	if err != nil {
		return err
	}

	if !ok {
		i.state = StateDeclined
		if err := i.writeDeclineMarker(); err != nil {
			i.logger.Warn("could not record install decline", "error", err)
		}
		fmt.Fprintf(i.out, "To install later, run: %s install\n", i.cfg.CommandName)
		return nil
	}

	i.state = StateAccepted
	if err := i.Install(); err != nil {
		i.logger.Error("installation failed", "error", err)
		fmt.Fprintf(i.out, "Installation failed: %v\n", err)
		return nil
	}
	return nil
}

// Install copies the running executable into the install directory under the
// configured command name. Idempotent: re-installing overwrites the command
// with the current version.
func (i *Installer) Install() error {
	src, err := i.executable()
	if err != nil {
		return fmt.Errorf("cannot determine current executable: %w", err)
	}

	if err := os.MkdirAll(i.cfg.Dir, 0750); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	target := i.InstallPath()
	if err := copyExecutable(src, target); err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Command %q installed to %s\n", i.cfg.CommandName, target)

	if !i.dirOnPath() {
		fmt.Fprintf(i.out, "Note: %s is not on your PATH. Add it to your shell profile:\n", i.cfg.Dir)
		fmt.Fprintf(i.out, "  export PATH=%q:$PATH\n", i.cfg.Dir)
	}

	return nil
}

// ClearDecline removes a recorded decline so future runs offer again.
func (i *Installer) ClearDecline() error {
	err := os.Remove(i.markerPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (i *Installer) writeDeclineMarker() error {
	if err := os.MkdirAll(i.stateDir, 0750); err != nil {
		return err
	}
	return os.WriteFile(i.markerPath(), []byte("declined\n"), 0600)
}

func (i *Installer) dirOnPath() bool {
	for _, dir := range strings.Split(i.pathEnv, string(os.PathListSeparator)) {
		if dir == i.cfg.Dir {
			return true
		}
	}
	return false
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open executable: %w", err)
	}
	defer in.Close()

	// Write to a temp file first so a failed copy never leaves a broken
	// half-written command behind.
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create install file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finish install file: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move command into place: %w", err)
	}
	return nil
}
