package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"caster/internal/ipc"
)

func newStreamCommand(ctx *commandContext) *cobra.Command {
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Control channel playback",
	}

	streamCmd.AddCommand(newStreamStartCommand(ctx))
	streamCmd.AddCommand(newStreamStopCommand(ctx))

	return streamCmd
}

func newStreamStartCommand(ctx *commandContext) *cobra.Command {
	var groupName string
	var noLoop bool

	cmd := &cobra.Command{
		Use:   "start [URL]",
		Short: "Start playback of a URL or a playlist group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var url string
			if len(args) > 0 {
				url = args[0]
			}
			if strings.TrimSpace(url) == "" && strings.TrimSpace(groupName) == "" {
				return errors.New("provide a URL or --group NAME")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartStream(ipc.StartStreamRequest{
					URL:   url,
					Group: groupName,
					Loop:  !noLoop,
				})
				if err != nil {
					return err
				}
				message := strings.TrimSpace(resp.Message)
				if message == "" {
					message = "Playback started"
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&groupName, "group", "g", "", "Play a playlist group instead of a URL")
	cmd.Flags().BoolVar(&noLoop, "no-loop", false, "Stop at the end of the group instead of looping")
	return cmd
}

func newStreamStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback while leaving the daemon running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StopStream(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback stopped")
				return nil
			})
		},
	}
}
