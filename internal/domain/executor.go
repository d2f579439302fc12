package domain

import "context"

// SnapshotEngine abstracts the restic CLI: an encrypted, content-addressed
// snapshot store. The engine owns all encryption, deduplication and
// versioning semantics; callers only name repositories and sources.
type SnapshotEngine interface {
	// RepoExists reports whether an initialized repository is reachable at
	// the given location with the given password.
	RepoExists(ctx context.Context, repo, password string) (bool, error)

	// Init initializes a new repository.
	Init(ctx context.Context, repo, password string) ([]byte, error)

	// Backup creates a snapshot of source in the repository and returns the
	// tool's output.
	Backup(ctx context.Context, source, repo, password string) ([]byte, error)

	// Version returns the tool's version string.
	Version(ctx context.Context) (string, error)

	// Validate checks that the tool is installed and runnable.
	Validate(ctx context.Context) error
}

// SyncTool abstracts the rclone CLI: plain incremental file copies to local
// paths or configured remotes. Transfer, retry and incremental-diff semantics
// belong to the tool.
type SyncTool interface {
	// ListRemotes returns the names of configured remotes, without the
	// trailing colon.
	ListRemotes(ctx context.Context) ([]string, error)

	// DirExists reports whether a directory exists at the target.
	DirExists(ctx context.Context, target string) (bool, error)

	// Copy copies source into target incrementally and returns the tool's
	// output.
	Copy(ctx context.Context, source, target string) ([]byte, error)

	// Version returns the tool's version string.
	Version(ctx context.Context) (string, error)

	// Validate checks that the tool is installed and runnable.
	Validate(ctx context.Context) error
}
