// Package config handles application configuration loading and validation.
package config

import "time"

// Default configuration values.
const (
	DefaultEncryptedDirName = "manual_nas_encrypted"
	DefaultCopyDirName      = "manual_nas_backup"
	DefaultContinueOnError  = false

	DefaultInstallEnabled     = true
	DefaultInstallCommandName = "nasback"

	DefaultNotifyEnabled = false
	DefaultNotifyURL     = ""
	DefaultNotifyKey     = ""
	DefaultNotifyLevel   = NotifyError

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// NotifyLevel represents when to send notifications.
type NotifyLevel string

const (
	// NotifyError sends notifications only on errors.
	NotifyError NotifyLevel = "error"
	// NotifyAlways sends notifications after every run.
	NotifyAlways NotifyLevel = "always"
)

// IsValid returns true if the notify level is valid.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notify level.
func (n NotifyLevel) String() string {
	return string(n)
}
