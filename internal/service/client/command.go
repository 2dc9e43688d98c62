package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/codec"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Action is a catpoint-ctl operation.
type Action string

// Supported actions.
const (
	ActionStatus       Action = "status"
	ActionArm          Action = "arm"
	ActionDisarm       Action = "disarm"
	ActionActivate     Action = "activate"
	ActionDeactivate   Action = "deactivate"
	ActionAddSensor    Action = "add-sensor"
	ActionRemoveSensor Action = "remove-sensor"
	ActionImage        Action = "image"
)

// Options configures a single catpoint-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Action selects the operation.
	Action Action
	// ArmingStatus is the target of ActionArm: "home" or "away".
	ArmingStatus string
	// SensorName and SensorType identify the sensor of sensor actions.
	SensorName string
	SensorType string
	// ImagePath is the file submitted by ActionImage.
	ImagePath string
	// Wait keeps retrying while the server is unreachable.
	Wait bool
	// Output receives the result; defaults to stdout.
	Output io.Writer
}

// securityClient is the subset of common.Client used by the command.
type securityClient interface {
	Status(ctx context.Context) (*domain.Snapshot, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error)
	ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) (*domain.Snapshot, error)
	ProcessImage(ctx context.Context, image []byte) (bool, error)
	AddSensor(ctx context.Context, key domain.SensorKey) (*domain.Snapshot, error)
	RemoveSensor(ctx context.Context, key domain.SensorKey) (*domain.Snapshot, error)
}

// defaultRetryInterval defines the delay between attempts while waiting for the server.
const defaultRetryInterval = 1 * time.Second

// errUnknownAction is returned for unsupported actions.
var errUnknownAction = errors.New("unknown action")

// Run connects to the security server and performs the requested action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-ctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Running action", "server_address", serverAddress, "action", opts.Action)

	return execute(ctx, client, opts, defaultRetryInterval)
}

// execute performs the action, retrying transient failures when opts.Wait is set.
// Actions that are not idempotent are only retried when the server was unreachable,
// since a timed out call may already have been applied.
func execute(ctx context.Context, client securityClient, opts *Options, retryInterval time.Duration) error {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	// retried is set once an attempt may have reached the server without a reply.
	retried := false

	// attempt tries the action once, returns (completed, error).
	attempt := func() (bool, error) {
		err := perform(ctx, client, opts, output)
		if err != nil && retried && appliedEarlier(opts.Action, err) {
			logger.InfoKV(ctx, "Action was applied by an earlier attempt", "action", opts.Action)

			statusOpts := *opts
			statusOpts.Action = ActionStatus

			err = perform(ctx, client, &statusOpts, output)
		}

		if err == nil {
			return true, nil
		}

		if opts.Wait && retryable(opts.Action, err) {
			logger.WarnKV(ctx, "Server unavailable, retrying", "error", err)

			retried = retried || status.Code(err) == codes.DeadlineExceeded

			return false, nil
		}

		return false, err
	}

	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil || done {
				return err
			}
		}
	}
}

// perform runs the action once and writes the result to output.
//
//nolint:cyclop // One branch per action.
func perform(ctx context.Context, client securityClient, opts *Options, output io.Writer) error {
	var (
		snapshot *domain.Snapshot
		err      error
	)

	switch opts.Action {
	case ActionStatus:
		snapshot, err = client.Status(ctx)
	case ActionArm:
		var arming domain.ArmingStatus

		arming, err = parseArmTarget(opts.ArmingStatus)
		if err != nil {
			return err
		}

		snapshot, err = client.SetArmingStatus(ctx, arming)
	case ActionDisarm:
		snapshot, err = client.SetArmingStatus(ctx, domain.ArmingStatusDisarmed)
	case ActionActivate, ActionDeactivate, ActionAddSensor, ActionRemoveSensor:
		var key domain.SensorKey

		key, err = sensorKey(opts)
		if err != nil {
			return err
		}

		snapshot, err = sensorAction(ctx, client, opts.Action, key)
	case ActionImage:
		return submitImage(ctx, client, opts.ImagePath, output)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}

	if err != nil {
		return err
	}

	return printSnapshot(output, snapshot)
}

// sensorAction dispatches the sensor related actions.
func sensorAction(
	ctx context.Context,
	client securityClient,
	action Action,
	key domain.SensorKey,
) (*domain.Snapshot, error) {
	switch action {
	case ActionActivate:
		return client.ChangeSensorActivation(ctx, key, true)
	case ActionDeactivate:
		return client.ChangeSensorActivation(ctx, key, false)
	case ActionAddSensor:
		return client.AddSensor(ctx, key)
	default:
		return client.RemoveSensor(ctx, key)
	}
}

// submitImage sends the file and prints the classification.
func submitImage(ctx context.Context, client securityClient, path string, output io.Writer) error {
	image, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	containsCat, err := client.ProcessImage(ctx, image)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(output, "cat detected: %t\n", containsCat)

	return err
}

// parseArmTarget accepts "home"/"away" as well as full arming status names.
func parseArmTarget(s string) (domain.ArmingStatus, error) {
	switch s {
	case "home":
		return domain.ArmingStatusArmedHome, nil
	case "away", "":
		return domain.ArmingStatusArmedAway, nil
	}

	arming, err := domain.ParseArmingStatus(s)
	if err != nil {
		return "", err
	}

	if !arming.IsArmed() {
		return "", fmt.Errorf("%w: %q is not an armed status", domain.ErrUnknownArmingStatus, s)
	}

	return arming, nil
}

// sensorKey validates the sensor identity from the options.
func sensorKey(opts *Options) (domain.SensorKey, error) {
	sensor, err := config.Sensor{Name: opts.SensorName, Type: opts.SensorType}.ToDomain()
	if err != nil {
		return domain.SensorKey{}, err
	}

	return sensor.Key(), nil
}

// printSnapshot writes the snapshot as JSON.
func printSnapshot(output io.Writer, snapshot *domain.Snapshot) error {
	data, err := codec.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output, string(data))

	return err
}

// retryable reports whether the action may be sent again after err.
func retryable(action Action, err error) bool {
	switch status.Code(err) {
	case codes.Unavailable:
		return true
	case codes.DeadlineExceeded:
		return idempotent(action)
	default:
		return false
	}
}

// idempotent reports whether repeating the action leaves the server in the same state.
// A second activation escalates the alarm and a second image is classified again.
func idempotent(action Action) bool {
	switch action {
	case ActionActivate, ActionImage:
		return false
	default:
		return true
	}
}

// appliedEarlier reports whether err shows that a timed out attempt already took effect.
func appliedEarlier(action Action, err error) bool {
	switch action {
	case ActionAddSensor:
		return status.Code(err) == codes.AlreadyExists
	case ActionRemoveSensor:
		return status.Code(err) == codes.NotFound
	default:
		return false
	}
}
