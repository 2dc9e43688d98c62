package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/version"
)

// Options controls the catpoint-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the admin HTTP listen address.
	HTTPAddress string
	// StorageDriver overrides the storage driver.
	StorageDriver string
	// StoragePath overrides the state file or database path.
	StoragePath string
	// CameraDir overrides the watched image inbox.
	CameraDir string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the security server and blocks until context is canceled or a component fails.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return err
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	logger.InfoKV(ctx, "Starting security server", version.KV()...)

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	a, err := newApp(ctx, settings, newRegistry())
	if err != nil {
		return fmt.Errorf("initialise server: %w", err)
	}

	defer a.close(ctx)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	logger.InfoKV(ctx, "Security server listening",
		"listen_address", listenAddress,
		"storage", settings.Storage.Driver,
		"classifier", settings.Classifier.Mode)

	return a.run(ctx, lis)
}

// applyOverrides copies command line overrides into the settings and revalidates them.
func applyOverrides(settings *config.Config, opts *Options) error {
	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.StorageDriver != "" {
		settings.Storage.Driver = opts.StorageDriver
		settings.Storage.Path = ""
	}

	if opts.StoragePath != "" {
		settings.Storage.Path = opts.StoragePath
	}

	if opts.CameraDir != "" {
		settings.Camera.Dir = opts.CameraDir
	}

	if err := config.Validate(settings); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
