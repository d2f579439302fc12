package executor

import (
	"context"

	"github.com/daurydicaprio/nasback/internal/domain"
)

// MockSnapshotEngine is a mock implementation of domain.SnapshotEngine for testing.
type MockSnapshotEngine struct {
	RepoExistsFunc func(ctx context.Context, repo, password string) (bool, error)
	InitFunc       func(ctx context.Context, repo, password string) ([]byte, error)
	BackupFunc     func(ctx context.Context, source, repo, password string) ([]byte, error)
	VersionFunc    func(ctx context.Context) (string, error)
	ValidateFunc   func(ctx context.Context) error

	// Calls records the method names invoked, in order.
	Calls []string
}

// RepoExists calls the mock RepoExistsFunc.
func (m *MockSnapshotEngine) RepoExists(ctx context.Context, repo, password string) (bool, error) {
	m.Calls = append(m.Calls, "RepoExists")
	if m.RepoExistsFunc != nil {
		return m.RepoExistsFunc(ctx, repo, password)
	}
	return true, nil
}

// Init calls the mock InitFunc.
func (m *MockSnapshotEngine) Init(ctx context.Context, repo, password string) ([]byte, error) {
	m.Calls = append(m.Calls, "Init")
	if m.InitFunc != nil {
		return m.InitFunc(ctx, repo, password)
	}
	return nil, nil
}

// Backup calls the mock BackupFunc.
func (m *MockSnapshotEngine) Backup(ctx context.Context, source, repo, password string) ([]byte, error) {
	m.Calls = append(m.Calls, "Backup")
	if m.BackupFunc != nil {
		return m.BackupFunc(ctx, source, repo, password)
	}
	return []byte("snapshot abc123 saved\n"), nil
}

// Version calls the mock VersionFunc.
func (m *MockSnapshotEngine) Version(ctx context.Context) (string, error) {
	if m.VersionFunc != nil {
		return m.VersionFunc(ctx)
	}
	return "restic mock", nil
}

// Validate calls the mock ValidateFunc.
func (m *MockSnapshotEngine) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// MockSyncTool is a mock implementation of domain.SyncTool for testing.
type MockSyncTool struct {
	ListRemotesFunc func(ctx context.Context) ([]string, error)
	DirExistsFunc   func(ctx context.Context, target string) (bool, error)
	CopyFunc        func(ctx context.Context, source, target string) ([]byte, error)
	VersionFunc     func(ctx context.Context) (string, error)
	ValidateFunc    func(ctx context.Context) error

	// Calls records the method names invoked, in order.
	Calls []string
}

// ListRemotes calls the mock ListRemotesFunc.
func (m *MockSyncTool) ListRemotes(ctx context.Context) ([]string, error) {
	m.Calls = append(m.Calls, "ListRemotes")
	if m.ListRemotesFunc != nil {
		return m.ListRemotesFunc(ctx)
	}
	return []string{"gdrive"}, nil
}

// DirExists calls the mock DirExistsFunc.
func (m *MockSyncTool) DirExists(ctx context.Context, target string) (bool, error) {
	m.Calls = append(m.Calls, "DirExists")
	if m.DirExistsFunc != nil {
		return m.DirExistsFunc(ctx, target)
	}
	return false, nil
}

// Copy calls the mock CopyFunc.
func (m *MockSyncTool) Copy(ctx context.Context, source, target string) ([]byte, error) {
	m.Calls = append(m.Calls, "Copy")
	if m.CopyFunc != nil {
		return m.CopyFunc(ctx, source, target)
	}
	return []byte("Transferred: 0 B / 0 B, -, 0 B/s, ETA -\n"), nil
}

// Version calls the mock VersionFunc.
func (m *MockSyncTool) Version(ctx context.Context) (string, error) {
	if m.VersionFunc != nil {
		return m.VersionFunc(ctx)
	}
	return "rclone mock", nil
}

// Validate calls the mock ValidateFunc.
func (m *MockSyncTool) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Ensure mocks implement the domain ports.
var (
	_ domain.SnapshotEngine = (*MockSnapshotEngine)(nil)
	_ domain.SyncTool       = (*MockSyncTool)(nil)
)
