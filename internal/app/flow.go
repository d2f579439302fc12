// Package app provides the core application logic: the interactive flow, the
// step runner and the self-install step.
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/slug"
)

// Flow builds a BackupJob from a sequence of interactive prompts.
type Flow struct {
	config   *config.Config
	prompter domain.Prompter
	engine   domain.SnapshotEngine
	sync     domain.SyncTool
	logger   *slog.Logger
	homeDir  string
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithFlowLogger sets the logger.
func WithFlowLogger(l *slog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = l
	}
}

// WithHomeDir overrides the home directory the source menu is built from.
func WithHomeDir(dir string) FlowOption {
	return func(f *Flow) {
		f.homeDir = dir
	}
}

// NewFlow creates a new Flow.
func NewFlow(cfg *config.Config, prompter domain.Prompter, engine domain.SnapshotEngine, syncTool domain.SyncTool, opts ...FlowOption) *Flow {
	f := &Flow{
		config:   cfg,
		prompter: prompter,
		engine:   engine,
		sync:     syncTool,
		logger:   slog.Default(),
	}
	if f.homeDir == "" {
		f.homeDir, _ = os.UserHomeDir()
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// BuildJob drives the prompt sequence and returns a validated BackupJob.
// Required external tools are checked as soon as the mode is known, before
// any destination details are asked for.
func (f *Flow) BuildJob(ctx context.Context) (*domain.BackupJob, error) {
	mode, err := f.selectMode()
	if err != nil {
		return nil, err
	}

	if mode == domain.ModeSecure {
		if err := f.engine.Validate(ctx); err != nil {
			return nil, err
		}
	}
	rcloneErr := f.sync.Validate(ctx)
	if mode == domain.ModeSimple && rcloneErr != nil {
		return nil, rcloneErr
	}

	source, err := f.selectSource()
	if err != nil {
		return nil, err
	}

	ok, err := f.prompter.Confirm(fmt.Sprintf("Source: %s. Continue with this folder?", source))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAborted
	}

	destinations, err := f.selectDestinations(ctx, rcloneErr == nil)
	if err != nil {
		return nil, err
	}

	prefix, err := f.selectPrefix(mode)
	if err != nil {
		return nil, err
	}

	job := &domain.BackupJob{
		Source:       source,
		ProjectName:  slug.Normalize(filepath.Base(source)),
		Mode:         mode,
		Prefix:       prefix,
		Destinations: destinations,
	}

	if mode == domain.ModeSecure {
		pwd, err := f.prompter.Password("Enter password for secure repository [Enter to auto-generate]")
		if err != nil {
			return nil, err
		}
		if pwd == "" {
			pwd = GeneratePassword(job.ProjectName)
			job.PasswordGenerated = true
			f.logger.Info("generated repository password")
		}
		job.Password = pwd
	}

	job.SortDestinations()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func (f *Flow) selectMode() (domain.BackupMode, error) {
	idx, err := f.prompter.Select("Choose an action", []string{
		"Secure backup (encrypted, version history - recommended for safety)",
		"Simple incremental copy (non-encrypted, direct file access)",
	})
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return domain.ModeSecure, nil
	}
	return domain.ModeSimple, nil
}

// selectSource offers the home directory folders plus a custom-path entry.
// A missing or unreadable source is fatal: no external command may run.
func (f *Flow) selectSource() (string, error) {
	folders := f.listDirs(f.homeDir)

	options := make([]string, 0, len(folders)+1)
	options = append(options, "Enter a custom path")
	options = append(options, folders...)

	idx, err := f.prompter.Select("Select source folder", options)
	if err != nil {
		return "", err
	}

	var source string
	if idx == 0 {
		path, err := f.prompter.Input(fmt.Sprintf("Enter path relative to %s", f.homeDir), "")
		if err != nil {
			return "", err
		}
		if path == "" {
			return "", &domain.InvalidInputError{Field: "source", Reason: "path cannot be empty"}
		}
		if filepath.IsAbs(path) {
			source = filepath.Clean(path)
		} else {
			source = filepath.Join(f.homeDir, path)
		}
	} else {
		source = filepath.Join(f.homeDir, folders[idx-1])
	}

	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return "", &domain.SourceNotFoundError{Path: source}
	}
	dir, err := os.Open(source)
	if err != nil {
		return "", &domain.SourceNotFoundError{Path: source}
	}
	_ = dir.Close()

	return source, nil
}

// selectDestinations asks for a primary destination and optionally a
// secondary one of the other kind.
func (f *Flow) selectDestinations(ctx context.Context, rcloneAvailable bool) ([]domain.Destination, error) {
	disks := f.listDirs(f.config.MediaRoot)

	var remotes []string
	if rcloneAvailable {
		var err error
		remotes, err = f.sync.ListRemotes(ctx)
		if err != nil {
			f.logger.Warn("could not list rclone remotes", "error", err)
		}
	}

	candidates := make([]domain.Destination, 0, len(disks)+len(remotes))
	labels := make([]string, 0, cap(candidates))
	for _, d := range disks {
		candidates = append(candidates, domain.Destination{Kind: domain.DestinationDisk, Name: d})
		labels = append(labels, "External disk: "+d)
	}
	for _, r := range remotes {
		candidates = append(candidates, domain.Destination{Kind: domain.DestinationCloud, Name: r})
		labels = append(labels, "Cloud remote: "+r)
	}

	if len(candidates) == 0 {
		return nil, &domain.InvalidInputError{
			Field:  "destinations",
			Reason: "no mounted disks or configured rclone remotes found (run 'rclone config' to add a remote)",
		}
	}

	idx, err := f.prompter.Select("Select primary destination", labels)
	if err != nil {
		return nil, err
	}
	destinations := []domain.Destination{candidates[idx]}

	// Offer a secondary destination of the other kind.
	switch candidates[idx].Kind {
	case domain.DestinationDisk:
		if len(remotes) > 0 {
			ok, err := f.prompter.Confirm("Also back up to a cloud remote?")
			if err != nil {
				return nil, err
			}
			if ok {
				i, err := f.prompter.Select("Select cloud remote", remotes)
				if err != nil {
					return nil, err
				}
				destinations = append(destinations, domain.Destination{Kind: domain.DestinationCloud, Name: remotes[i]})
			}
		}
	case domain.DestinationCloud:
		if len(disks) > 0 {
			ok, err := f.prompter.Confirm("Also back up to an external disk?")
			if err != nil {
				return nil, err
			}
			if ok {
				i, err := f.prompter.Select("Select external disk", disks)
				if err != nil {
					return nil, err
				}
				destinations = append(destinations, domain.Destination{Kind: domain.DestinationDisk, Name: disks[i]})
			}
		}
	}

	return destinations, nil
}

// selectPrefix asks for the destination subdirectory, at most two levels deep.
func (f *Flow) selectPrefix(mode domain.BackupMode) (string, error) {
	def := f.config.DirNameFor(mode == domain.ModeSecure)
	for {
		prefix, err := f.prompter.Input(
			fmt.Sprintf("Enter custom destination path (max 2 levels) [Enter for %q]", def), def)
		if err != nil {
			return "", err
		}
		prefix = strings.Trim(prefix, "/")
		if prefix == "" {
			return def, nil
		}
		if len(strings.Split(prefix, "/")) <= 2 {
			return prefix, nil
		}
		f.logger.Debug("rejected destination path", "prefix", prefix)
	}
}

// listDirs returns the sorted subdirectory names of dir, or nil when dir
// cannot be read.
func (f *Flow) listDirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns "<salt>_" followed by 12 random alphanumerics.
func GeneratePassword(salt string) string {
	buf := make([]byte, 12)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken.
			panic(fmt.Sprintf("random source unavailable: %v", err))
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return salt + "_" + string(buf)
}
