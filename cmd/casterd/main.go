// Command casterd runs the caster streaming daemon: the playback engine,
// HTTP API, IPC control socket, and background maintenance loops.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"caster/internal/config"
	"caster/internal/daemonrun"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		host       string
		port       string
		workers    int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "casterd",
		Short:         "Run the caster streaming daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, host, port, workers)
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := daemonrun.Options{LogLevel: cfg.Logging.Level}
			if logLevel != "" {
				opts.LogLevel = logLevel
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&host, "host", "", "HTTP API bind host (overrides config)")
	cmd.Flags().StringVar(&port, "port", "", "HTTP API bind port (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent transcode sessions (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

// applyOverrides layers command line flags over the loaded configuration.
// Unset flags leave the config values untouched.
func applyOverrides(cfg *config.Config, host, port string, workers int) {
	if host != "" || port != "" {
		bindHost, bindPort := cfg.BindHostPort()
		if host != "" {
			bindHost = host
		}
		if port != "" {
			bindPort = port
		}
		cfg.Paths.APIBind = net.JoinHostPort(bindHost, bindPort)
	}
	if workers > 0 {
		cfg.Stream.Workers = workers
	}
}
