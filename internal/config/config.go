package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Config holds the settings shared by the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC address of the security server.
	ServerAddress string `yaml:"server_addr" env:"SERVER_ADDR"`
	// HTTPAddress is the listen address of the admin HTTP endpoint; empty disables it.
	HTTPAddress string `yaml:"http_addr,omitempty" env:"HTTP_ADDR"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// LogLevel is a zap level name such as "debug" or "info".
	LogLevel string `yaml:"log_level,omitempty" env:"LOG_LEVEL"`
	// LogFormat is either "console" or "json".
	LogFormat string `yaml:"log_format,omitempty" env:"LOG_FORMAT"`
	// ConfidenceThreshold is the classifier confidence in percent.
	ConfidenceThreshold float32 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
	// Storage selects where the server keeps its state.
	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`
	// Classifier selects the image classifier.
	Classifier Classifier `yaml:"classifier" envPrefix:"CLASSIFIER_"`
	// Camera configures the watched image inbox.
	Camera Camera `yaml:"camera,omitempty" envPrefix:"CAMERA_"`
	// Redis configures the optional event publisher.
	Redis Redis `yaml:"redis,omitempty" envPrefix:"REDIS_"`
	// Siren configures the command the checker runs when the alarm goes off.
	Siren Siren `yaml:"siren,omitempty" envPrefix:"SIREN_"`
	// Sensors are registered by the server on start when missing from storage.
	Sensors []Sensor `yaml:"sensors,omitempty" envPrefix:"SENSORS_"`
}

// Storage selects the state backend.
type Storage struct {
	// Driver is one of "memory", "file" or "sqlite".
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the state file or database path.
	Path string `yaml:"path,omitempty" env:"PATH"`
}

// Classifier selects the image classifier.
type Classifier struct {
	// Mode is one of "random", "always" or "never".
	Mode string `yaml:"mode" env:"MODE"`
}

// Camera configures the image inbox watched by the server.
type Camera struct {
	// Dir is the directory to watch; empty disables the watcher.
	Dir string `yaml:"dir,omitempty" env:"DIR"`
	// Rate is the maximum number of images processed per second.
	Rate float64 `yaml:"rate,omitempty" env:"RATE"`
	// Burst is the number of images that may be processed back to back.
	Burst int `yaml:"burst,omitempty" env:"BURST"`
}

// Redis configures the event publisher.
type Redis struct {
	// Addr is the Redis server address; empty disables publishing.
	Addr string `yaml:"addr,omitempty" env:"ADDR"`
	// Password is the optional Redis password.
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
	// DB is the Redis database number.
	DB int `yaml:"db,omitempty" env:"DB"`
	// Channel is the pub/sub channel events are published to.
	Channel string `yaml:"channel,omitempty" env:"CHANNEL"`
}

// Siren configures the alarm command.
type Siren struct {
	// Command is the program and its arguments; empty only logs.
	Command []string `yaml:"command,omitempty" env:"COMMAND" envSeparator:","`
	// PIDFile records the running siren so a restarted checker can silence it.
	PIDFile string `yaml:"pid_file,omitempty" env:"PID_FILE"`
}

// Sensor describes a sensor to register on start.
type Sensor struct {
	// Name is the sensor label.
	Name string `yaml:"name" env:"NAME"`
	// Type is "door", "window" or "motion".
	Type string `yaml:"type" env:"TYPE"`
}

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Classifier modes.
const (
	ClassifierRandom = "random"
	ClassifierAlways = "always"
	ClassifierNever  = "never"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for the JSON state file.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultDatabaseFilename is the default filename for the SQLite database.
	DefaultDatabaseFilename = "catpoint.db"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultConfidenceThreshold is the default classifier confidence in percent.
	DefaultConfidenceThreshold float32 = 50

	// DefaultRedisChannel is the pub/sub channel for events.
	DefaultRedisChannel = "catpoint:events"

	// DefaultCameraRate is the default number of images processed per second.
	DefaultCameraRate = 1.0

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "CATPOINT_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownDriver is returned for unsupported storage drivers.
	errUnknownDriver = errors.New("unknown storage driver")
	// errUnknownClassifier is returned for unsupported classifier modes.
	errUnknownClassifier = errors.New("unknown classifier mode")
	// errThresholdOutOfRange is returned when the confidence is not in (0, 100].
	errThresholdOutOfRange = errors.New("confidence threshold must be in (0, 100]")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides fields with CATPOINT_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, _, err := net.SplitHostPort(settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ConfidenceThreshold == 0 {
		settings.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	if settings.ConfidenceThreshold < 0 || settings.ConfidenceThreshold > 100 {
		return fmt.Errorf("%w: %v", errThresholdOutOfRange, settings.ConfidenceThreshold)
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if err := validateClassifier(&settings.Classifier); err != nil {
		return err
	}

	if settings.Camera.Dir != "" && settings.Camera.Rate <= 0 {
		settings.Camera.Rate = DefaultCameraRate
	}

	if settings.Camera.Burst <= 0 {
		settings.Camera.Burst = 1
	}

	if settings.Redis.Addr != "" && settings.Redis.Channel == "" {
		settings.Redis.Channel = DefaultRedisChannel
	}

	for i, sensor := range settings.Sensors {
		if _, err := sensor.ToDomain(); err != nil {
			return fmt.Errorf("sensor %d: %w", i, err)
		}
	}

	return nil
}

// ToDomain converts the configured sensor into an inactive domain sensor.
func (s Sensor) ToDomain() (domain.Sensor, error) {
	sensorType, err := domain.ParseSensorType(s.Type)
	if err != nil {
		return domain.Sensor{}, err
	}

	sensor := domain.Sensor{
		Name: strings.TrimSpace(s.Name),
		Type: sensorType,
	}

	if err = sensor.Validate(); err != nil {
		return domain.Sensor{}, err
	}

	return sensor, nil
}

// validateStorage normalises the driver name and fills in the default path.
func validateStorage(storage *Storage) error {
	storage.Driver = strings.ToLower(strings.TrimSpace(storage.Driver))

	switch storage.Driver {
	case "", DriverFile:
		storage.Driver = DriverFile

		if storage.Path == "" {
			storage.Path = DefaultStateFilename
		}
	case DriverSQLite:
		if storage.Path == "" {
			storage.Path = DefaultDatabaseFilename
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, storage.Driver)
	}

	return nil
}

// validateClassifier normalises the classifier mode.
func validateClassifier(classifier *Classifier) error {
	classifier.Mode = strings.ToLower(strings.TrimSpace(classifier.Mode))

	switch classifier.Mode {
	case "":
		classifier.Mode = ClassifierRandom
	case ClassifierRandom, ClassifierAlways, ClassifierNever:
	default:
		return fmt.Errorf("%w: %q", errUnknownClassifier, classifier.Mode)
	}

	return nil
}
