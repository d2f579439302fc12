package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daurydicaprio/nasback/internal/domain"
	"github.com/daurydicaprio/nasback/internal/executor"
	"github.com/daurydicaprio/nasback/internal/notify"
)

// NewValidateCmd creates the validate command. It checks the configuration
// and the availability of the external tools a backup run depends on.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Printf("✗ Configuration: %v\n", err)
				return fmt.Errorf("validation failed")
			}
			fmt.Println("✓ Configuration is valid")
			fmt.Printf("  Media root: %s\n", cfg.MediaRoot)
			fmt.Printf("  Secure dir: %s\n", cfg.EncryptedDirName)
			fmt.Printf("  Copy dir: %s\n", cfg.CopyDirName)

			ctx := cmd.Context()
			failed := false

			restic := executor.NewRestic(execOpts(cfg.Restic, slog.Default())...)
			if ver, err := restic.Version(ctx); err != nil {
				failed = true
				printToolError("restic", err)
			} else {
				fmt.Printf("✓ restic: %s\n", ver)
			}

			rclone := executor.NewRclone(execOpts(cfg.Rclone, slog.Default())...)
			if ver, err := rclone.Version(ctx); err != nil {
				failed = true
				printToolError("rclone", err)
			} else {
				fmt.Printf("✓ rclone: %s\n", ver)

				if remotes, err := rclone.ListRemotes(ctx); err != nil {
					failed = true
					fmt.Printf("✗ rclone remotes: %v\n", err)
				} else if len(remotes) == 0 {
					fmt.Println("  No remotes configured (run 'rclone config' to add one)")
				} else {
					fmt.Printf("  Remotes: %s\n", strings.Join(remotes, ", "))
				}
			}

			if cfg.Notify.Enabled {
				notifier := notify.NewAppriseClient(cfg.Notify.URL, cfg.Notify.Key)
				if err := notifier.Validate(ctx); err != nil {
					failed = true
					fmt.Printf("✗ Apprise: %v\n", err)
				} else {
					fmt.Printf("✓ Apprise server reachable at %s\n", cfg.Notify.URL)
				}
			} else {
				fmt.Println("- Notifications disabled")
			}

			if failed {
				return fmt.Errorf("validation failed")
			}
			fmt.Println("\nAll checks passed")
			return nil
		},
	}
}

func printToolError(tool string, err error) {
	var missing *domain.MissingDependencyError
	if errors.As(err, &missing) {
		fmt.Printf("✗ %s is not installed (see %s)\n", tool, missing.InstallURL)
		return
	}
	fmt.Printf("✗ %s: %v\n", tool, err)
}
