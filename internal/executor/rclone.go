package executor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/daurydicaprio/nasback/internal/domain"
)

const (
	rcloneTool       = "rclone"
	rcloneInstallURL = "https://rclone.org/install/"
)

// Rclone implements domain.SyncTool using the rclone CLI.
type Rclone struct {
	opts options
}

// NewRclone creates a new Rclone executor.
func NewRclone(opts ...Option) *Rclone {
	return &Rclone{opts: newOptions(opts)}
}

// ListRemotes returns the names of configured remotes without the trailing colon.
func (r *Rclone) ListRemotes(ctx context.Context) ([]string, error) {
	out, err := r.exec(ctx, "listremotes")
	if err != nil {
		return nil, err
	}

	var remotes []string
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSuffix(strings.TrimSpace(line), ":")
		if name != "" {
			remotes = append(remotes, name)
		}
	}
	return remotes, nil
}

// DirExists reports whether a directory exists at the target. rclone exits
// non-zero for missing directories, so tool failures map to "does not exist";
// only context cancellation is surfaced.
func (r *Rclone) DirExists(ctx context.Context, target string) (bool, error) {
	_, err := r.exec(ctx, "lsd", target)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return true, nil
}

// Copy copies source into target incrementally. Files already up to date at
// the target are skipped; nothing is ever deleted.
func (r *Rclone) Copy(ctx context.Context, source, target string) ([]byte, error) {
	return r.exec(ctx, "copy", source, target, "--update", "--create-empty-src-dirs", "--stats-one-line", "-v")
}

// Version returns the rclone version string.
func (r *Rclone) Version(ctx context.Context) (string, error) {
	out, err := r.exec(ctx, "version")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// Validate checks that rclone is installed and runnable.
func (r *Rclone) Validate(ctx context.Context) error {
	path, err := resolveBinary(r.opts.binaryPath, rcloneTool, rcloneInstallURL)
	if err != nil {
		return err
	}
	if r.opts.binaryPath != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("rclone binary not found at %s: %w", path, err)
		}
	}
	if _, err := r.Version(ctx); err != nil {
		return fmt.Errorf("rclone binary failed to execute: %w", err)
	}
	return nil
}

func (r *Rclone) exec(ctx context.Context, args ...string) ([]byte, error) {
	path, err := resolveBinary(r.opts.binaryPath, rcloneTool, rcloneInstallURL)
	if err != nil {
		return nil, err
	}

	r.opts.logger.Debug("executing rclone", "path", path, "args", args)

	stdout, stderr, err := r.opts.run(ctx, nil, path, args...)
	if err != nil {
		return nil, toolError(ctx, rcloneTool, stderr, err)
	}
	// rclone writes transfer stats to stderr; keep them for summaries.
	if len(stdout) == 0 {
		return stderr, nil
	}
	return append(stdout, stderr...), nil
}

// Ensure Rclone implements domain.SyncTool.
var _ domain.SyncTool = (*Rclone)(nil)
