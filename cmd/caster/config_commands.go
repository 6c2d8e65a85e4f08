package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"caster/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	root := &cobra.Command{Use: "config", Short: "Configuration utilities"}
	root.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return root
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSampleConfig(cmd, targetPath, overwrite)
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the file if it already exists")
	return cmd
}

// resolveInitTarget expands the requested destination, defaulting to the
// standard config location when none is given.
func resolveInitTarget(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(path)
}

func writeSampleConfig(cmd *cobra.Command, targetPath string, overwrite bool) error {
	target, err := resolveInitTarget(targetPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create config directory %q: %w", parent, err)
	}
	if !overwrite {
		switch _, err := os.Stat(target); {
		case err == nil:
			return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
		case !os.IsNotExist(err):
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := config.CreateSample(target); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
	fmt.Fprintln(out, "Edit the file to point live_dir at your web root before starting casterd.")
	return nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validateConfigFile(cmd, flagValue(ctx.configFlag))
		},
	}
}

func validateConfigFile(cmd *cobra.Command, flagPath string) error {
	cfg, path, exists, err := config.Load(flagPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config path: %s\n", path)
	if !exists {
		fmt.Fprintln(out, "No config file found; defaults were used")
	}
	fmt.Fprintln(out, "Configuration valid")
	return nil
}
