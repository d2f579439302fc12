package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daurydicaprio/nasback/internal/app"
	"github.com/daurydicaprio/nasback/internal/config"
	"github.com/daurydicaprio/nasback/internal/prompt"
)

// NewInstallCmd creates the install command. It installs the running
// executable directly, without the post-run offer, and clears a previously
// recorded decline.
func NewInstallCmd() *cobra.Command {
	var dir string
	var name string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install this executable as a command on your PATH",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			installCfg := cfg.Install
			if dir != "" {
				installCfg.Dir = dir
			}
			if name != "" {
				installCfg.CommandName = name
			}
			if installCfg.CommandName == "" {
				installCfg.CommandName = config.DefaultInstallCommandName
			}

			stateDir, err := config.EnsureStateDir()
			if err != nil {
				return err
			}

			installer := app.NewInstaller(installCfg, stateDir,
				prompt.NewTerminal(os.Stdin, os.Stdout))
			if err := installer.Install(); err != nil {
				return err
			}

			// An explicit install supersedes an earlier decline.
			return installer.ClearDecline()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "install directory (defaults to ~/.local/bin)")
	cmd.Flags().StringVar(&name, "name", "", "installed command name")

	return cmd
}
