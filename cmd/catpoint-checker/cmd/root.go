package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/checker"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// interval between status polls.
	interval time.Duration
	// debug controls whether to skip the siren when the alarm goes off.
	debug bool

	// rootCmd represents the base command for polling the security status.
	rootCmd = &cobra.Command{
		Use:   "catpoint-checker [server-address]",
		Short: "Monitor the alarm and sound the siren when it goes off.",
		Long: `Background service that monitors the security server and reacts to the alarm.

Polls the server at a fixed interval (5 seconds by default) and logs every alarm
status change. When the system enters ALARM, runs the siren command from the
configuration file unless it is already running; when the alarm clears, stops it.
Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				PollInterval:  interval,
				Debug:         debug,
			})
		},
	}
)

// Execute runs the catpoint-checker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", checker.DefaultPollInterval, "interval between status polls")

	// Hidden debug flag to skip the siren for debugging.
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "skip the siren for debugging")

	err := rootCmd.Flags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
