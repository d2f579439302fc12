// Package domain defines core business types and interfaces.
package domain

import "sort"

// BackupMode selects which external tool performs the backup.
type BackupMode string

const (
	// ModeSecure produces an encrypted, versioned restic snapshot.
	ModeSecure BackupMode = "secure"
	// ModeSimple produces a plain incremental rclone copy.
	ModeSimple BackupMode = "simple"
)

// String returns the string representation of the backup mode.
func (m BackupMode) String() string {
	return string(m)
}

// IsValid returns true if the backup mode is valid.
func (m BackupMode) IsValid() bool {
	switch m {
	case ModeSecure, ModeSimple:
		return true
	default:
		return false
	}
}

// DestinationKind distinguishes local mounts from rclone remotes.
type DestinationKind string

const (
	// DestinationDisk is a locally mounted drive.
	DestinationDisk DestinationKind = "disk"
	// DestinationCloud is a configured rclone remote.
	DestinationCloud DestinationKind = "cloud"
)

// Destination is a backup target: a mounted disk or a configured rclone remote.
type Destination struct {
	Kind DestinationKind `json:"kind"`

	// Name is the mount directory name for disks, or the rclone remote name.
	Name string `json:"name"`
}

// String returns a human-readable destination label.
func (d Destination) String() string {
	return string(d.Kind) + ":" + d.Name
}

// BackupJob describes a single run. It is built from prompts or CLI flags,
// consumed once, and discarded.
type BackupJob struct {
	// Source is the absolute path of the directory to back up.
	Source string

	// ProjectName is the normalized base name of Source, used to name the
	// destination directory or repository.
	ProjectName string

	Mode BackupMode

	// Prefix is the destination subdirectory the backup lands in
	// (at most two path levels).
	Prefix string

	// Password is the restic repository password. Required for secure mode.
	Password string

	// PasswordGenerated is true when Password was auto-generated rather than
	// entered by the user, so the final report must display it.
	PasswordGenerated bool

	Destinations []Destination
}

// Validate checks that the job is complete enough to run.
func (j *BackupJob) Validate() error {
	if j.Source == "" {
		return &InvalidInputError{Field: "source", Reason: "source path is required"}
	}
	if j.ProjectName == "" {
		return &InvalidInputError{Field: "source", Reason: "source path yields an empty project name"}
	}
	if !j.Mode.IsValid() {
		return &InvalidInputError{Field: "mode", Reason: "mode must be secure or simple"}
	}
	if len(j.Destinations) == 0 {
		return &InvalidInputError{Field: "destinations", Reason: "at least one destination is required"}
	}
	if j.Mode == ModeSecure && j.Password == "" {
		return &InvalidInputError{Field: "password", Reason: "secure mode requires a repository password"}
	}
	return nil
}

// SortDestinations orders disk destinations strictly before cloud ones,
// preserving the relative order within each kind.
func (j *BackupJob) SortDestinations() {
	sort.SliceStable(j.Destinations, func(a, b int) bool {
		return j.Destinations[a].Kind == DestinationDisk && j.Destinations[b].Kind == DestinationCloud
	})
}
