package domain

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the user cancels an interactive flow.
var ErrAborted = errors.New("aborted by user")

// MissingDependencyError indicates a required external tool is not installed.
type MissingDependencyError struct {
	Tool       string
	InstallURL string
}

func (e *MissingDependencyError) Error() string {
	if e.InstallURL != "" {
		return fmt.Sprintf("required tool not found: %s (see %s)", e.Tool, e.InstallURL)
	}
	return fmt.Sprintf("required tool not found: %s", e.Tool)
}

// InvalidInputError indicates a user-supplied value that cannot be used.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SourceNotFoundError indicates the backup source does not exist or is not a
// readable directory.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source folder does not exist: %s", e.Path)
}

// DestinationUnreachableError indicates a selected destination cannot be used.
type DestinationUnreachableError struct {
	Destination string
	Reason      string
}

func (e *DestinationUnreachableError) Error() string {
	return fmt.Sprintf("destination %s unreachable: %s", e.Destination, e.Reason)
}

// ExternalToolError indicates an invoked tool exited with a failure.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed (exit %d)", e.Tool, e.ExitCode)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
