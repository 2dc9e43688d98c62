package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/server"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the admin HTTP listen address.
	httpAddress string
	// storageDriver overrides the storage driver.
	storageDriver string
	// storagePath overrides the state file or database path.
	storagePath string
	// cameraDir overrides the watched image inbox.
	cameraDir string

	// rootCmd represents the base command for running the security server.
	rootCmd = &cobra.Command{
		Use:   "catpoint-server [listen-address]",
		Short: "Run the catpoint security server.",
		Long: `Starts the gRPC security server that owns the alarm state machine.

The server keeps the arming status, the alarm status and the sensors in the
configured store (memory, JSON file or SQLite) and applies the alarm rules to
sensor changes, arming changes and camera images.
Only the port from ServerAddress config is used for listening (e.g., :7010).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:7010).
Optionally serves health, metrics and status over HTTP, watches a directory
for camera images and publishes events to Redis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				StorageDriver: storageDriver,
				StoragePath:   storagePath,
				CameraDir:     cameraDir,
			})
		},
	}
)

// Execute runs the catpoint-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&httpAddress, "http-addr", "", "admin HTTP listen address (overrides config)")
	flags.StringVar(&storageDriver, "storage", "", "storage driver: memory, file or sqlite (overrides config)")
	flags.StringVarP(&storagePath, "state-file", "s", "", "path to the state file or database (overrides config)")
	flags.StringVar(&cameraDir, "camera-dir", "", "directory watched for camera images (overrides config)")
}
