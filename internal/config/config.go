package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// MediaRoot is where removable drives are mounted.
	MediaRoot string `mapstructure:"media_root"`

	// EncryptedDirName is the destination subdirectory for secure backups.
	EncryptedDirName string `mapstructure:"encrypted_dir_name"`

	// CopyDirName is the destination subdirectory for simple copies.
	CopyDirName string `mapstructure:"copy_dir_name"`

	// ContinueOnError keeps running remaining destinations after a failure.
	ContinueOnError bool `mapstructure:"continue_on_error"`

	DryRun bool `mapstructure:"dry_run"`

	Restic  ToolConfig    `mapstructure:"restic"`
	Rclone  ToolConfig    `mapstructure:"rclone"`
	Install InstallConfig `mapstructure:"install"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Log     LogConfig     `mapstructure:"log"`
}

// ToolConfig holds the location of an external tool.
type ToolConfig struct {
	// Binary is the path to the executable (looked up on PATH if empty).
	Binary string `mapstructure:"binary"`
}

// InstallConfig holds self-install configuration.
type InstallConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Dir is the directory the command is installed into
	// (defaults to ~/.local/bin).
	Dir string `mapstructure:"dir"`

	// CommandName is the installed command name.
	CommandName string `mapstructure:"command_name"`
}

// NotifyConfig holds Apprise notification configuration.
type NotifyConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	URL     string      `mapstructure:"url"`
	Key     string      `mapstructure:"key"`
	Level   NotifyLevel `mapstructure:"level"`
}

// RetryConfig holds HTTP retry configuration for the notifier.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads configuration from all sources and returns the merged config.
// Precedence (highest to lowest): CLI flags > environment > config file > defaults.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Defaults that depend on the environment are resolved after loading.
	if cfg.Log.Output == "" {
		if logPath, err := DefaultLogPath(); err == nil {
			cfg.Log.Output = logPath
		}
		// If the default path cannot be determined, logging goes to stderr.
	}
	if cfg.Install.Dir == "" {
		if dir, err := DefaultInstallDir(); err == nil {
			cfg.Install.Dir = dir
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	l.v.SetDefault("media_root", DefaultMediaRoot())
	l.v.SetDefault("encrypted_dir_name", DefaultEncryptedDirName)
	l.v.SetDefault("copy_dir_name", DefaultCopyDirName)
	l.v.SetDefault("continue_on_error", DefaultContinueOnError)
	l.v.SetDefault("dry_run", false)

	l.v.SetDefault("restic.binary", "")
	l.v.SetDefault("rclone.binary", "")

	l.v.SetDefault("install.enabled", DefaultInstallEnabled)
	l.v.SetDefault("install.dir", "")
	l.v.SetDefault("install.command_name", DefaultInstallCommandName)

	l.v.SetDefault("notify.enabled", DefaultNotifyEnabled)
	l.v.SetDefault("notify.url", DefaultNotifyURL)
	l.v.SetDefault("notify.key", DefaultNotifyKey)
	l.v.SetDefault("notify.level", string(DefaultNotifyLevel))

	l.v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	l.v.SetDefault("retry.initial_delay", DefaultRetryInitialDelay)
	l.v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

// setupEnvBindings configures environment variable bindings.
func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// loadConfigFile loads configuration from a file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		configDir, err := DefaultConfigDir()
		if err != nil {
			// Can't determine config dir, proceed without file config
			return nil
		}

		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(configDir)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MediaRoot == "" {
		return fmt.Errorf("media_root cannot be empty")
	}

	if c.EncryptedDirName == "" || c.CopyDirName == "" {
		return fmt.Errorf("encrypted_dir_name and copy_dir_name cannot be empty")
	}
	if filepath.IsAbs(c.EncryptedDirName) || filepath.IsAbs(c.CopyDirName) {
		return fmt.Errorf("destination dir names must be relative paths")
	}

	if c.Restic.Binary != "" {
		if _, err := os.Stat(c.Restic.Binary); err != nil {
			return fmt.Errorf("restic.binary does not exist: %s", c.Restic.Binary)
		}
	}
	if c.Rclone.Binary != "" {
		if _, err := os.Stat(c.Rclone.Binary); err != nil {
			return fmt.Errorf("rclone.binary does not exist: %s", c.Rclone.Binary)
		}
	}

	if c.Install.Enabled && c.Install.CommandName == "" {
		return fmt.Errorf("install.command_name is required when install is enabled")
	}

	if c.Notify.Enabled {
		if c.Notify.URL == "" {
			return fmt.Errorf("notify.url is required when notify is enabled")
		}
		if c.Notify.Key == "" {
			return fmt.Errorf("notify.key is required when notify is enabled")
		}
		if !c.Notify.Level.IsValid() {
			return fmt.Errorf("notify.level must be one of: error, always")
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay cannot be negative")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("log.max_size_mb must be at least 1")
	}

	return nil
}

// DirNameFor returns the default destination subdirectory for a backup mode.
func (c *Config) DirNameFor(secure bool) string {
	if secure {
		return c.EncryptedDirName
	}
	return c.CopyDirName
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() (string, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// WriteExampleConfig writes an example config file to the given path.
func WriteExampleConfig(path string) error {
	content := `# nasback configuration

# Where removable drives are mounted
# media_root = "/run/media/youruser"

# Destination subdirectory for secure (restic) backups
encrypted_dir_name = "manual_nas_encrypted"

# Destination subdirectory for simple (rclone) copies
copy_dir_name = "manual_nas_backup"

# Keep backing up remaining destinations after a failure
continue_on_error = false

# External tool locations (looked up on PATH if empty)
[restic]
binary = ""

[rclone]
binary = ""

# Self-install as a command after the first successful run
[install]
enabled = true
command_name = "nasback"
# dir = "~/.local/bin"

# Apprise notifications (optional, disabled by default)
[notify]
enabled = false
url = "http://localhost:8000"
key = "nasback"
# Notification level: "error", "always"
level = "error"

# HTTP retry configuration for notifications
[retry]
max_attempts = 3
initial_delay = "5s"
max_delay = "30s"

# Logging configuration
[log]
# Level: debug, info, warn, error
level = "info"
# Output file path (defaults to nasback.log in the state directory)
# output = ""
# Max log file size before rotation (MB)
max_size_mb = 10
`
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}
