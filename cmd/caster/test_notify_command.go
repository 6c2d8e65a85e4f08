package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"caster/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	run := func(cmd *cobra.Command, _ []string) error {
		return ctx.withClient(func(conn *ipc.Client) error {
			return runTestNotify(cmd, conn)
		})
	}
	return &cobra.Command{Use: "test-notify", Short: "Send a test ntfy notification", RunE: run}
}

func runTestNotify(cmd *cobra.Command, conn *ipc.Client) error {
	resp, err := conn.TestNotification()
	switch {
	case err != nil:
		return err
	case resp == nil:
		return errors.New("daemon returned no notification result")
	}
	fmt.Fprintln(cmd.OutOrStdout(), notifyOutcome(resp))
	return nil
}

// notifyOutcome prefers the daemon's own message when it sent one.
func notifyOutcome(resp *ipc.TestNotificationResponse) string {
	switch {
	case resp.Message != "":
		return resp.Message
	case resp.Sent:
		return "Test notification sent"
	}
	return "Notification not sent"
}
