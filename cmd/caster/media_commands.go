package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"caster/internal/api"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Manage the video catalog",
	}

	mediaCmd.AddCommand(newMediaAddCommand(ctx))
	mediaCmd.AddCommand(newMediaListCommand(ctx))
	mediaCmd.AddCommand(newMediaRemoveCommand(ctx))

	return mediaCmd
}

func newMediaAddCommand(ctx *commandContext) *cobra.Command {
	var addID string
	var addTitle string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Add a video to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				item, err := catalog.AddMedia(cmd.Context(), api.AddMediaRequest{
					ID:    addID,
					Title: addTitle,
					URL:   args[0],
				})
				if err != nil {
					return err
				}
				label := strings.TrimSpace(item.Title)
				if label == "" {
					label = item.URL
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", label, item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addID, "id", "", "Explicit catalog ID (generated when omitted)")
	cmd.Flags().StringVar(&addTitle, "title", "", "Display title (defaults to the URL)")
	return cmd
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var listJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				items, err := catalog.ListMedia(cmd.Context())
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "URL", "Added"},
					buildMediaRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newMediaRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID...",
		Short: "Remove catalog entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(catalog catalogAPI) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					if err := catalog.RemoveMedia(cmd.Context(), id); err != nil {
						if notFound(err) {
							fmt.Fprintf(out, "Media %s not found\n", id)
							continue
						}
						return err
					}
					fmt.Fprintf(out, "Removed %s\n", id)
				}
				return nil
			})
		},
	}
}
