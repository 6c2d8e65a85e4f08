package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caster/internal/api"
)

func newGroupCommand(ctx *commandContext) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage playlist groups",
	}

	groupCmd.AddCommand(newGroupSetCommand(ctx))
	groupCmd.AddCommand(newGroupListCommand(ctx))
	groupCmd.AddCommand(newGroupRemoveCommand(ctx))

	return groupCmd
}

func newGroupSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME [ID...]",
		Short: "Create or replace a playlist group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				group, err := catalog.SetGroup(cmd.Context(), api.SetGroupRequest{
					Name:     args[0],
					VideoIDs: args[1:],
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Group %s set (%d videos)\n", group.Name, len(group.VideoIDs))
				return nil
			})
		},
	}
}

func newGroupListCommand(ctx *commandContext) *cobra.Command {
	var listJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List playlist groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				groups, err := catalog.ListGroups(cmd.Context())
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, groups)
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No groups defined")
					return nil
				}
				table := renderTable(
					[]string{"Name", "Videos", "Members"},
					buildGroupRows(groups),
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newGroupRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a playlist group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				if err := catalog.RemoveGroup(cmd.Context(), args[0]); err != nil {
					if notFound(err) {
						fmt.Fprintf(cmd.OutOrStdout(), "Group %s not found\n", args[0])
						return nil
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed group %s\n", args[0])
				return nil
			})
		},
	}
}
