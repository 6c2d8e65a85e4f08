package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"caster/internal/deploy"
)

func newDeployCommand() *cobra.Command {
	deployCmd := &cobra.Command{
		Use:         "deploy",
		Short:       "Container deployment utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	deployCmd.AddCommand(newDeployRenderCommand())
	deployCmd.AddCommand(newDeployCheckCommand())
	deployCmd.AddCommand(newDeployInitCommand())

	return deployCmd
}

func newDeployRenderCommand() *cobra.Command {
	var recipePath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the deployment recipe as a Dockerfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptor, err := loadDeployDescriptor(recipePath)
			if err != nil {
				return err
			}
			rendered, err := descriptor.Render()
			if err != nil {
				return err
			}
			if strings.TrimSpace(outputPath) == "" {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote Dockerfile to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&recipePath, "file", "f", "", "Recipe to render (defaults to the built-in recipe)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the Dockerfile here instead of stdout")
	return cmd
}

func newDeployCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [TARGET]",
		Short: "Verify a Dockerfile or recipe against the deployment rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "Dockerfile"
			if len(args) > 0 {
				target = args[0]
			}
			descriptor, err := deploy.FromFile(target)
			if err != nil {
				return err
			}
			violations := descriptor.Verify()
			out := cmd.OutOrStdout()
			if len(violations) == 0 {
				fmt.Fprintf(out, "%s conforms to the deployment rules\n", target)
				return nil
			}
			for _, violation := range violations {
				fmt.Fprintln(out, violation.String())
			}
			return fmt.Errorf("found %d deployment rule violations", len(violations))
		},
	}
}

func newDeployInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default deployment recipe as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = "deploy.yaml"
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("recipe already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check recipe path: %w", err)
				}
			}
			if err := deploy.Default().Save(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote deployment recipe to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the recipe (default deploy.yaml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing recipe")
	return cmd
}

func loadDeployDescriptor(path string) (*deploy.Descriptor, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return deploy.Default(), nil
	}
	return deploy.FromFile(path)
}
