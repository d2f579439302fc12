package app

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/executor"
	"github.com/daurydicaprio/nasback/internal/prompt"
)

// flowFixture builds a Flow over temp directories: a home dir with a "photos"
// folder and a media root with a "usb" disk.
type flowFixture struct {
	cfg    *config.Config
	home   string
	engine *executor.MockSnapshotEngine
	sync   *executor.MockSyncTool
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	home := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(home, "photos"), 0750))

	mediaRoot := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(mediaRoot, "usb"), 0750))

	return &flowFixture{
		cfg: &config.Config{
			MediaRoot:        mediaRoot,
			EncryptedDirName: config.DefaultEncryptedDirName,
			CopyDirName:      config.DefaultCopyDirName,
		},
		home:   home,
		engine: &executor.MockSnapshotEngine{},
		sync:   &executor.MockSyncTool{},
	}
}

func (f *flowFixture) flow(prompter domain.Prompter) *Flow {
	return NewFlow(f.cfg, prompter, f.engine, f.sync, WithHomeDir(f.home))
}

func TestBuildJobSecureWithBothDestinations(t *testing.T) {
	f := newFlowFixture(t)

	// mode: secure; source: "photos" (after the custom-path entry);
	// confirm source; primary: disk; add cloud: yes, pick gdrive;
	// prefix: default; password: typed.
	script := prompt.NewScript("1", "2", "y", "1", "y", "1", "", "hunter2")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ModeSecure, job.Mode)
	assert.Equal(t, filepath.Join(f.home, "photos"), job.Source)
	assert.Equal(t, "photos", job.ProjectName)
	assert.Equal(t, config.DefaultEncryptedDirName, job.Prefix)
	assert.Equal(t, "hunter2", job.Password)
	assert.False(t, job.PasswordGenerated)

	require.Len(t, job.Destinations, 2)
	assert.Equal(t, domain.DestinationDisk, job.Destinations[0].Kind)
	assert.Equal(t, "usb", job.Destinations[0].Name)
	assert.Equal(t, domain.DestinationCloud, job.Destinations[1].Kind)
	assert.Equal(t, "gdrive", job.Destinations[1].Name)
}

func TestBuildJobGeneratesPasswordWhenEmpty(t *testing.T) {
	f := newFlowFixture(t)

	script := prompt.NewScript("1", "2", "y", "1", "n", "", "")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)

	assert.True(t, job.PasswordGenerated)
	assert.Regexp(t, regexp.MustCompile(`^photos_[a-zA-Z0-9]{12}$`), job.Password)
}

func TestBuildJobSimpleSkipsPasswordPrompt(t *testing.T) {
	f := newFlowFixture(t)

	script := prompt.NewScript("2", "2", "y", "1", "n", "")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ModeSimple, job.Mode)
	assert.Empty(t, job.Password)
	assert.Equal(t, config.DefaultCopyDirName, job.Prefix)
	for _, p := range script.Prompts {
		assert.NotContains(t, p, "password")
	}
}

func TestBuildJobCustomSourcePath(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.home, "work", "docs"), 0750))

	script := prompt.NewScript("2", "1", "work/docs", "y", "1", "n", "")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.home, "work", "docs"), job.Source)
	assert.Equal(t, "docs", job.ProjectName)
}

func TestBuildJobMissingSourceIsFatal(t *testing.T) {
	f := newFlowFixture(t)

	script := prompt.NewScript("1", "1", "no_such_folder")

	_, err := f.flow(script).BuildJob(context.Background())
	require.Error(t, err)

	var notFound *domain.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(f.home, "no_such_folder"), notFound.Path)

	// The flow ended before any backup command could run.
	assert.Empty(t, f.engine.Calls)
	assert.Empty(t, f.sync.Calls)
}

func TestBuildJobDecliningSourceAborts(t *testing.T) {
	f := newFlowFixture(t)

	script := prompt.NewScript("1", "2", "n")

	_, err := f.flow(script).BuildJob(context.Background())
	assert.ErrorIs(t, err, domain.ErrAborted)
}

func TestBuildJobMissingResticStopsBeforeDestinations(t *testing.T) {
	f := newFlowFixture(t)
	f.engine.ValidateFunc = func(ctx context.Context) error {
		return &domain.MissingDependencyError{Tool: "restic", InstallURL: "https://restic.readthedocs.io"}
	}

	script := prompt.NewScript("1")

	_, err := f.flow(script).BuildJob(context.Background())
	require.Error(t, err)

	var missing *domain.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "restic", missing.Tool)

	// Only the mode question was asked; no source or destination prompts.
	assert.Equal(t, []string{"Choose an action"}, script.Prompts)
}

func TestBuildJobMissingRcloneFatalForSimpleMode(t *testing.T) {
	f := newFlowFixture(t)
	f.sync.ValidateFunc = func(ctx context.Context) error {
		return &domain.MissingDependencyError{Tool: "rclone", InstallURL: "https://rclone.org/install/"}
	}

	script := prompt.NewScript("2")

	_, err := f.flow(script).BuildJob(context.Background())
	require.Error(t, err)

	var missing *domain.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "rclone", missing.Tool)
}

func TestBuildJobMissingRcloneTolerableForSecureDiskOnly(t *testing.T) {
	f := newFlowFixture(t)
	f.sync.ValidateFunc = func(ctx context.Context) error {
		return &domain.MissingDependencyError{Tool: "rclone"}
	}

	// Without rclone the destination menu holds only the disk.
	script := prompt.NewScript("1", "2", "y", "1", "", "pw")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)

	require.Len(t, job.Destinations, 1)
	assert.Equal(t, domain.DestinationDisk, job.Destinations[0].Kind)
}

func TestBuildJobNoDestinationsAvailable(t *testing.T) {
	f := newFlowFixture(t)
	f.cfg.MediaRoot = t.TempDir() // no mounted disks
	f.sync.ListRemotesFunc = func(ctx context.Context) ([]string, error) {
		return nil, nil
	}

	script := prompt.NewScript("2", "2", "y")

	_, err := f.flow(script).BuildJob(context.Background())
	require.Error(t, err)

	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "destinations", invalid.Field)
}

func TestBuildJobPrefixDepthLimit(t *testing.T) {
	f := newFlowFixture(t)

	// The three-level prefix is rejected and the question repeats.
	script := prompt.NewScript("2", "2", "y", "1", "n", "a/b/c", "projects/2024")

	job, err := f.flow(script).BuildJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "projects/2024", job.Prefix)
}

func TestBuildJobQuitDuringMenuAborts(t *testing.T) {
	f := newFlowFixture(t)

	script := prompt.NewScript()
	_, err := f.flow(script).BuildJob(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAborted)

	aborting := &abortingPrompter{}
	_, err = f.flow(aborting).BuildJob(context.Background())
	assert.ErrorIs(t, err, domain.ErrAborted)
}

// abortingPrompter aborts at the first question, like a user typing "q".
type abortingPrompter struct{}

func (a *abortingPrompter) Input(prompt, def string) (string, error) {
	return "", domain.ErrAborted
}

func (a *abortingPrompter) Confirm(prompt string) (bool, error) {
	return false, domain.ErrAborted
}

func (a *abortingPrompter) Select(prompt string, options []string) (int, error) {
	return 0, domain.ErrAborted
}

func (a *abortingPrompter) Password(prompt string) (string, error) {
	return "", domain.ErrAborted
}

func TestGeneratePassword(t *testing.T) {
	pw := GeneratePassword("photos")
	assert.Regexp(t, regexp.MustCompile(`^photos_[a-zA-Z0-9]{12}$`), pw)

	// Two generations must differ.
	assert.NotEqual(t, pw, GeneratePassword("photos"))
}

func TestGeneratePasswordDistribution(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[GeneratePassword("x")] = true
	}
	assert.Len(t, seen, 50)
}
