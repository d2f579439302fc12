package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/prompt"
)

type installerFixture struct {
	installDir string
	stateDir   string
	executable string
	out        *bytes.Buffer
}

func newInstallerFixture(t *testing.T) *installerFixture {
	t.Helper()

	executable := filepath.Join(t.TempDir(), "nasback-build")
	require.NoError(t, os.WriteFile(executable, []byte("#!/bin/sh\necho nasback\n"), 0755))

	return &installerFixture{
		installDir: filepath.Join(t.TempDir(), "bin"),
		stateDir:   t.TempDir(),
		executable: executable,
		out:        &bytes.Buffer{},
	}
}

func (f *installerFixture) installer(prompter domain.Prompter) *Installer {
	cfg := config.InstallConfig{
		Enabled:     true,
		Dir:         f.installDir,
		CommandName: "nasback",
	}
	return NewInstaller(cfg, f.stateDir, prompter,
		WithInstallerOutput(f.out),
		withExecutable(func() (string, error) { return f.executable, nil }),
		withPathEnv("/usr/bin:/usr/local/bin"),
	)
}

func successResult() *domain.RunResult {
	return &domain.RunResult{Success: true}
}

func failedResult() *domain.RunResult {
	return &domain.RunResult{Success: false}
}

func TestOfferOnlyAfterFullSuccess(t *testing.T) {
	f := newInstallerFixture(t)
	prompter := prompt.NewScript() // any prompt would fail the test

	inst := f.installer(prompter)
	require.NoError(t, inst.Offer(failedResult()))

	assert.Equal(t, StateNotOffered, inst.State())
	assert.Empty(t, prompter.Prompts)
	assert.NoFileExists(t, inst.InstallPath())
}

func TestOfferDisabledByConfig(t *testing.T) {
	f := newInstallerFixture(t)
	prompter := prompt.NewScript()

	cfg := config.InstallConfig{Enabled: false, Dir: f.installDir, CommandName: "nasback"}
	inst := NewInstaller(cfg, f.stateDir, prompter, WithInstallerOutput(f.out))

	require.NoError(t, inst.Offer(successResult()))
	assert.Equal(t, StateNotOffered, inst.State())
	assert.Empty(t, prompter.Prompts)
}

func TestOfferAcceptedInstallsCommand(t *testing.T) {
	f := newInstallerFixture(t)
	inst := f.installer(prompt.NewScript("y"))

	require.NoError(t, inst.Offer(successResult()))

	assert.Equal(t, StateAccepted, inst.State())
	require.FileExists(t, inst.InstallPath())

	data, err := os.ReadFile(inst.InstallPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo nasback")

	info, err := os.Stat(inst.InstallPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestOfferDeclinedWritesMarkerOnly(t *testing.T) {
	f := newInstallerFixture(t)
	inst := f.installer(prompt.NewScript("n"))

	require.NoError(t, inst.Offer(successResult()))

	assert.Equal(t, StateDeclined, inst.State())
	assert.NoFileExists(t, inst.InstallPath())
	assert.FileExists(t, filepath.Join(f.stateDir, "install_declined"))
	assert.Contains(t, f.out.String(), "nasback install")
}

func TestOfferSuppressedAfterDecline(t *testing.T) {
	f := newInstallerFixture(t)

	require.NoError(t, f.installer(prompt.NewScript("n")).Offer(successResult()))

	prompter := prompt.NewScript()
	inst := f.installer(prompter)
	require.NoError(t, inst.Offer(successResult()))

	assert.Equal(t, StateNotOffered, inst.State())
	assert.Empty(t, prompter.Prompts)
}

func TestOfferUpdateQuestionWhenAlreadyInstalled(t *testing.T) {
	f := newInstallerFixture(t)

	require.NoError(t, f.installer(prompt.NewScript("y")).Offer(successResult()))

	prompter := prompt.NewScript("y")
	inst := f.installer(prompter)
	require.NoError(t, inst.Offer(successResult()))

	require.Len(t, prompter.Prompts, 1)
	assert.Contains(t, prompter.Prompts[0], "already installed")
}

func TestOfferInstallFailureDoesNotPropagate(t *testing.T) {
	f := newInstallerFixture(t)

	cfg := config.InstallConfig{Enabled: true, Dir: f.installDir, CommandName: "nasback"}
	inst := NewInstaller(cfg, f.stateDir, prompt.NewScript("y"),
		WithInstallerOutput(f.out),
		withExecutable(func() (string, error) { return filepath.Join(f.stateDir, "missing"), nil }),
	)

	// A failed install is reported but never fails the run.
	require.NoError(t, inst.Offer(successResult()))
	assert.Contains(t, f.out.String(), "Installation failed")
}

func TestInstallIsIdempotent(t *testing.T) {
	f := newInstallerFixture(t)
	inst := f.installer(prompt.NewScript())

	require.NoError(t, inst.Install())
	require.NoError(t, os.WriteFile(f.executable, []byte("#!/bin/sh\necho v2\n"), 0755))
	require.NoError(t, inst.Install())

	data, err := os.ReadFile(inst.InstallPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo v2")
}

func TestInstallWarnsWhenDirNotOnPath(t *testing.T) {
	f := newInstallerFixture(t)
	inst := f.installer(prompt.NewScript())

	require.NoError(t, inst.Install())
	assert.Contains(t, f.out.String(), "not on your PATH")
}

func TestInstallNoWarningWhenDirOnPath(t *testing.T) {
	f := newInstallerFixture(t)

	cfg := config.InstallConfig{Enabled: true, Dir: f.installDir, CommandName: "nasback"}
	inst := NewInstaller(cfg, f.stateDir, prompt.NewScript(),
		WithInstallerOutput(f.out),
		withExecutable(func() (string, error) { return f.executable, nil }),
		withPathEnv("/usr/bin"+string(os.PathListSeparator)+f.installDir),
	)

	require.NoError(t, inst.Install())
	assert.NotContains(t, f.out.String(), "not on your PATH")
}

func TestClearDecline(t *testing.T) {
	f := newInstallerFixture(t)

	require.NoError(t, f.installer(prompt.NewScript("n")).Offer(successResult()))
	require.FileExists(t, filepath.Join(f.stateDir, "install_declined"))

	inst := f.installer(prompt.NewScript())
	require.NoError(t, inst.ClearDecline())
	assert.NoFileExists(t, filepath.Join(f.stateDir, "install_declined"))

	// Clearing twice is fine.
	assert.NoError(t, inst.ClearDecline())
}
