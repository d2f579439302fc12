package executor

import (
	"context"
	"fmt"
	"os"

	"github.com/daurydicaprio/nasback/internal/domain"
)

const (
	resticTool       = "restic"
	resticInstallURL = "https://restic.readthedocs.io"

	// passwordEnv is how restic receives the repository password. Passing it
	// through the child environment keeps it out of argv and process listings.
	passwordEnv = "RESTIC_PASSWORD"
)

// Restic implements domain.SnapshotEngine using the restic CLI.
type Restic struct {
	opts options
}

// NewRestic creates a new Restic executor.
func NewRestic(opts ...Option) *Restic {
	return &Restic{opts: newOptions(opts)}
}

// RepoExists reports whether an initialized repository answers at the given
// location. Any tool failure is treated as "no repository"; only context
// cancellation is surfaced.
func (r *Restic) RepoExists(ctx context.Context, repo, password string) (bool, error) {
	_, err := r.exec(ctx, password, "--repo", repo, "snapshots", "--last", "1")
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return true, nil
}

// Init initializes a new repository at the given location.
func (r *Restic) Init(ctx context.Context, repo, password string) ([]byte, error) {
	return r.exec(ctx, password, "--repo", repo, "init")
}

// Backup snapshots source into the repository.
func (r *Restic) Backup(ctx context.Context, source, repo, password string) ([]byte, error) {
	return r.exec(ctx, password, "backup", source, "--repo", repo, "--verbose")
}

// Version returns the restic version string.
func (r *Restic) Version(ctx context.Context) (string, error) {
	out, err := r.exec(ctx, "", "version")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// Validate checks that restic is installed and runnable.
func (r *Restic) Validate(ctx context.Context) error {
	path, err := resolveBinary(r.opts.binaryPath, resticTool, resticInstallURL)
	if err != nil {
		return err
	}
	if r.opts.binaryPath != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("restic binary not found at %s: %w", path, err)
		}
	}
	if _, err := r.Version(ctx); err != nil {
		return fmt.Errorf("restic binary failed to execute: %w", err)
	}
	return nil
}

func (r *Restic) exec(ctx context.Context, password string, args ...string) ([]byte, error) {
	path, err := resolveBinary(r.opts.binaryPath, resticTool, resticInstallURL)
	if err != nil {
		return nil, err
	}

	r.opts.logger.Debug("executing restic", "path", path, "args", args)

	var env map[string]string
	if password != "" {
		env = map[string]string{passwordEnv: password}
	}

	stdout, stderr, err := r.opts.run(ctx, env, path, args...)
	if err != nil {
		return nil, toolError(ctx, resticTool, stderr, err)
	}
	return stdout, nil
}

// Ensure Restic implements domain.SnapshotEngine.
var _ domain.SnapshotEngine = (*Restic)(nil)
