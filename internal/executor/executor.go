// Package executor implements the SnapshotEngine and SyncTool ports on top of
// the restic and rclone CLIs.
package executor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/daurydicaprio/nasback/internal/domain"
)

// commandRunner executes an external command and returns its stdout, stderr
// and error. Injectable so tests never spawn processes.
type commandRunner func(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, []byte, error)

func runCommand(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, []byte, error) {
	// #nosec G204 -- name comes from config or PATH lookup, not user input
	cmd := exec.CommandContext(ctx, name, args...)

	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// options holds the settings shared by both executors.
type options struct {
	binaryPath string
	logger     *slog.Logger
	run        commandRunner
}

// Option configures an executor.
type Option func(*options)

// WithBinaryPath sets the path to the tool binary.
func WithBinaryPath(path string) Option {
	return func(o *options) {
		o.binaryPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func withRunner(run commandRunner) Option {
	return func(o *options) {
		o.run = run
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		run:    runCommand,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolveBinary returns the tool path: the configured one if set, otherwise a
// PATH lookup.
func resolveBinary(configured, tool, installURL string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", &domain.MissingDependencyError{Tool: tool, InstallURL: installURL}
	}
	return path, nil
}

// toolError wraps a failed invocation into a domain.ExternalToolError,
// preserving context cancellation.
func toolError(ctx context.Context, tool string, stderr []byte, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}

	return &domain.ExternalToolError{
		Tool:     tool,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(string(stderr)),
		Err:      err,
	}
}

func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
