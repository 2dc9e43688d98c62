package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string
	// serverAddress overrides the server address from the configuration.
	serverAddress string
	// wait keeps retrying while the server is unreachable.
	wait bool

	// rootCmd represents the base command for controlling the security server.
	rootCmd = &cobra.Command{
		Use:   "catpoint-ctl",
		Short: "Control the catpoint security server.",
		Long: `Command line control panel for the catpoint security server.

Arms and disarms the system, changes and registers sensors, submits camera
images and prints the resulting state as JSON.
Server address is loaded from the configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the catpoint-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run executes one client action with signal handling.
func run(cmd *cobra.Command, opts client.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts.ConfigPath = configPath
	opts.ServerAddress = serverAddress
	opts.Wait = wait
	opts.Output = cmd.OutOrStdout()

	return client.Run(ctx, &opts)
}

// newStatusCommand prints the current state.
func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the arming status, the alarm status and the sensors.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.Options{Action: client.ActionStatus})
		},
	}
}

// newArmCommand arms the system.
func newArmCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "arm [home|away]",
		Short:     "Arm the system; every sensor is reset to inactive.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.Options{Action: client.ActionArm}
			if len(args) > 0 {
				opts.ArmingStatus = args[0]
			}

			return run(cmd, opts)
		},
	}
}

// newDisarmCommand disarms the system.
func newDisarmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and clear the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.Options{Action: client.ActionDisarm})
		},
	}
}

// newSensorCommand groups the sensor operations.
func newSensorCommand() *cobra.Command {
	sensorCmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors.",
	}

	actions := []struct {
		use    string
		short  string
		action client.Action
	}{
		{use: "activate", short: "Report a sensor as active.", action: client.ActionActivate},
		{use: "deactivate", short: "Report a sensor as inactive.", action: client.ActionDeactivate},
		{use: "add", short: "Register a new sensor.", action: client.ActionAddSensor},
		{use: "remove", short: "Remove a sensor.", action: client.ActionRemoveSensor},
	}

	for _, a := range actions {
		sensorCmd.AddCommand(&cobra.Command{
			Use:   a.use + " <name> <door|window|motion>",
			Short: a.short,
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, client.Options{
					Action:     a.action,
					SensorName: args[0],
					SensorType: args[1],
				})
			},
		})
	}

	return sensorCmd
}

// newImageCommand submits a camera image.
func newImageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>",
		Short: "Submit a camera image for cat detection.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.Options{Action: client.ActionImage, ImagePath: args[0]})
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "server address (overrides config)")
	flags.BoolVarP(&wait, "wait", "w", false, "keep retrying until the server is reachable")

	rootCmd.AddCommand(
		newStatusCommand(),
		newArmCommand(),
		newDisarmCommand(),
		newSensorCommand(),
		newImageCommand(),
	)
}
