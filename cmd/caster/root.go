package main

import "github.com/spf13/cobra"

func newRootCommand() *cobra.Command {
	var socketFlag, configFlag string
	cc := newCommandContext(&socketFlag, &configFlag)

	root := &cobra.Command{
		Use:           "caster",
		Short:         "Control the caster streaming daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.requireConfig()
			return err
		},
	}

	root.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the caster daemon socket")
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	for _, sub := range []*cobra.Command{
		newDaemonCommand(cc),
		newStatusCommand(cc),
		newMediaCommand(cc),
		newGroupCommand(cc),
		newStreamCommand(cc),
		newLogsCommand(cc),
		newDBCommand(cc),
		newTestNotifyCommand(cc),
		newConfigCommand(cc),
		newDeployCommand(),
	} {
		root.AddCommand(sub)
	}

	return root
}
