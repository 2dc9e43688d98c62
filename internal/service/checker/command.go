package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
	"github.com/oshokin/catpoint/internal/service/siren"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between status checks.
	PollInterval time.Duration
	// Debug only logs when the alarm goes off instead of sounding the siren.
	Debug bool
}

// DefaultPollInterval defines the default polling interval for status checks.
const DefaultPollInterval = 5 * time.Second

// statusReader reads the current state from the server.
type statusReader interface {
	Status(ctx context.Context) (*domain.Snapshot, error)
}

// alarmSounder is triggered when the system enters and leaves ALARM.
type alarmSounder interface {
	Sound(ctx context.Context) error
	Silence(ctx context.Context) (int, error)
}

// checker remembers the last seen alarm status between polls.
type checker struct {
	// client reads the state.
	client statusReader
	// siren is sounded on entering ALARM and silenced on leaving it.
	siren alarmSounder
	// debug disables the siren.
	debug bool
	// last is the alarm status the siren was last brought in line with; empty before the first poll.
	last domain.AlarmStatus
}

// Run polls the security server, sounding the siren whenever the system enters ALARM and silencing it when the alarm clears.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "catpoint-checker")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Polling security status", "server_address", serverAddress, "interval", opts.PollInterval.String())

	c := &checker{
		client: client,
		siren:  siren.New(cfg.Siren.Command, siren.WithPIDFile(cfg.Siren.PIDFile)),
		debug:  opts.Debug,
	}

	return c.poll(ctx, opts.PollInterval)
}

// poll checks the status on every tick until ctx is cancelled.
func (c *checker) poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				logger.ErrorKV(ctx, "Check status failed", "error", err)
			}
		}
	}
}

// check reads the status once, logs transitions and drives the siren.
func (c *checker) check(ctx context.Context) error {
	snapshot, err := c.client.Status(ctx)
	if err != nil {
		return err
	}

	previous := c.last

	if previous == snapshot.AlarmStatus {
		logger.DebugKV(ctx, "Security status", "arming_status", snapshot.ArmingStatus, "alarm_status", snapshot.AlarmStatus)

		return nil
	}

	logger.InfoKV(ctx, "Alarm status changed",
		"from", previous,
		"to", snapshot.AlarmStatus,
		"arming_status", snapshot.ArmingStatus)

	switch {
	case snapshot.AlarmStatus == domain.AlarmStatusAlarm:
		err = c.sound(ctx)
	case previous == domain.AlarmStatusAlarm:
		err = c.silence(ctx)
	}

	// A failed siren action is retried on the next poll.
	if err != nil {
		return err
	}

	c.last = snapshot.AlarmStatus

	return nil
}

// sound starts the siren unless debug mode is on.
func (c *checker) sound(ctx context.Context) error {
	if c.debug {
		logger.Info(ctx, "Alarm is on but debug mode prevents the siren")

		return nil
	}

	err := c.siren.Sound(ctx)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, siren.ErrNoCommand):
		logger.WarnKV(ctx, "Alarm is on but no siren is configured")

		return nil
	case errors.Is(err, siren.ErrAlreadySounding):
		logger.Info(ctx, "Siren is already sounding")

		return nil
	default:
		return err
	}
}

// silence stops a running siren once the alarm has cleared.
func (c *checker) silence(ctx context.Context) error {
	if c.debug {
		return nil
	}

	if _, err := c.siren.Silence(ctx); err != nil && !errors.Is(err, siren.ErrNoCommand) {
		return err
	}

	return nil
}
