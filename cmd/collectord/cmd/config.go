package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/relaymesh/collector/configs"
	"github.com/relaymesh/collector/internal/config"
	"github.com/relaymesh/collector/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage collectord configuration files.

Configuration is merged in order of increasing precedence: built-in
defaults, the user config (~/.config/collector/config.yaml), the project
config (collector.yaml in the working directory), then COLLECTOR_*
environment variables.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var userLevel bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the embedded template",
		Long: `Write a commented configuration template.

By default writes collector.yaml into the working directory. With --user
writes the user-level config to ~/.config/collector/config.yaml instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, userLevel, force)
		},
	}

	cmd.Flags().BoolVar(&userLevel, "user", false, "Write the user-level config instead of a project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runConfigInit(cmd *cobra.Command, userLevel, force bool) error {
	out := output.New(cmd.OutOrStdout())

	path := "collector.yaml"
	template := configs.ProjectConfigTemplate
	if userLevel {
		path = config.GetUserConfigPath()
		template = configs.UserConfigTemplate
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("%s already exists, use --force to overwrite", path)
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	out.Successf("wrote %s", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
