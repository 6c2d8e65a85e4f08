package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"caster/internal/ipc"
	"caster/internal/library"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the catalog database",
	}

	dbCmd.AddCommand(newDBHealthCommand(ctx))

	return dbCmd
}

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show catalog database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if client, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
				defer client.Close()
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				printDatabaseHealth(out, resp)
				return nil
			}

			cfg, err := ctx.requireConfig()
			if err != nil {
				return err
			}
			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			printDatabaseHealth(out, &ipc.DatabaseHealthResponse{
				Path:           health.Path,
				Exists:         health.Exists,
				Readable:       health.Readable,
				SchemaVersion:  health.SchemaVersion,
				MediaTable:     health.MediaTable,
				MediaColumns:   health.MediaColumns,
				MissingColumns: health.MissingColumns,
				IntegrityCheck: health.IntegrityCheck,
				TotalMedia:     health.TotalMedia,
				TotalGroups:    health.TotalGroups,
				Error:          health.Error,
			})
			return nil
		},
	}
}

func printDatabaseHealth(out io.Writer, health *ipc.DatabaseHealthResponse) {
	integrity := "passed"
	if !health.IntegrityCheck {
		integrity = "failed"
	}
	fmt.Fprintf(out, "Database: %s\n", health.Path)
	fmt.Fprintf(out, "Exists: %s\n", yesNo(health.Exists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(health.Readable))
	fmt.Fprintf(out, "Schema version: %s\n", health.SchemaVersion)
	fmt.Fprintf(out, "Integrity check: %s\n", integrity)
	fmt.Fprintf(out, "Media: %d\n", health.TotalMedia)
	fmt.Fprintf(out, "Groups: %d\n", health.TotalGroups)
	if len(health.MissingColumns) > 0 {
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
	}
	if strings.TrimSpace(health.Error) != "" {
		fmt.Fprintf(out, "Error: %s\n", health.Error)
	}
}
