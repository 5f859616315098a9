// Package config loads the ara-ipcbinding daemon's static configuration:
// the runtime processing mode, the set of offered service instances and
// the Unix-socket address each is bound to, the SOME/IP-TP assembler
// table, and the ambient logging/telemetry/metrics sub-sections.
//
// Configuration sources, in order of precedence (lowest to highest):
//  1. Default values
//  2. Configuration file (YAML)
//  3. Environment variables (IPCBINDING_*)
//
// Environment variables are applied only when a configuration file is
// found, and only to keys that the file sets; without a file, none is
// applied.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

// ProcessingMode names how ReactorSyncTask bridges application-thread
// calls onto the reactor (spec.md §4.6, see DESIGN.md's Open Question
// resolutions): "thread_driven" blocks the caller on a condition variable
// until the reactor runs the closure; "polling" runs the closure on the
// calling goroutine under a process-wide lock. thread_driven is the
// default. The value is validated and logged at start-up, but
// binding.LifeCycleManager always uses a thread-driven task, so "polling"
// does not change how the daemon runs.
type ProcessingMode string

const (
	ProcessingModeThreadDriven ProcessingMode = "thread_driven"
	ProcessingModePolling      ProcessingMode = "polling"
)

// Config is the ara-ipcbinding daemon's top-level configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ProcessingMode names the ReactorSyncTask bridging strategy; see the
	// ProcessingMode type for how far the daemon acts on it.
	ProcessingMode ProcessingMode `mapstructure:"processing_mode" validate:"required,oneof=thread_driven polling" yaml:"processing_mode"`

	// ReactorQueueDepth bounds the reactor's software-event channel.
	ReactorQueueDepth int `mapstructure:"reactor_queue_depth" validate:"required,gt=0" yaml:"reactor_queue_depth"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Instances lists every service instance this daemon offers, and the
	// local address each is reachable on.
	Instances []InstanceConfig `mapstructure:"instances" validate:"dive" yaml:"instances"`

	// TP configures the SOME/IP-TP reassembly engine (component C11).
	TP TPConfig `mapstructure:"tp" yaml:"tp"`
}

// InstanceConfig binds one offered service instance to an IpcUnicastAddress
// and an access-control integrity level.
type InstanceConfig struct {
	ServiceID      uint16 `mapstructure:"service_id" yaml:"service_id"`
	InstanceID     uint16 `mapstructure:"instance_id" yaml:"instance_id"`
	MajorVer       uint8  `mapstructure:"major_version" yaml:"major_version"`
	MinorVer       uint32 `mapstructure:"minor_version" yaml:"minor_version"`
	IsAnyInstance  bool   `mapstructure:"any_instance" yaml:"any_instance,omitempty"`
	Domain         uint32 `mapstructure:"domain" yaml:"domain"`
	Port           uint32 `mapstructure:"port" yaml:"port"`
	IntegrityLevel string `mapstructure:"integrity_level" validate:"omitempty,oneof=QM ASIL-A ASIL-B ASIL-C ASIL-D" yaml:"integrity_level,omitempty"`
}

// Identifier returns the ProvidedServiceInstanceID this entry describes.
func (i InstanceConfig) Identifier() message.ProvidedServiceInstanceID {
	return message.ProvidedServiceInstanceID{
		ServiceInstanceIdentifier: message.ServiceInstanceIdentifier{
			ServiceID:  i.ServiceID,
			InstanceID: i.InstanceID,
			MajorVer:   i.MajorVer,
			MinorVer:   i.MinorVer,
		},
		IsAnyInstance: i.IsAnyInstance,
	}
}

// Address returns the IpcUnicastAddress this instance is bound to.
func (i InstanceConfig) Address() message.IpcUnicastAddress {
	return message.IpcUnicastAddress{Domain: i.Domain, Port: i.Port}
}

// TPConfig configures the TP assembler mapping and its allocator.
type TPConfig struct {
	// DeterministicBufferSize is the total size of the monotonic arena
	// shared by every deterministic-policy assembler. 0 disables the
	// deterministic allocator entirely (every assembler falls back to
	// the flexible, pooled policy).
	DeterministicBufferSize uint32 `mapstructure:"deterministic_buffer_size" yaml:"deterministic_buffer_size"`

	// Methods enumerates the per-method TP acceptance policy. Any
	// (ServiceID, MajorVer, MethodID, MessageType) tuple not listed here
	// has no assembler and a segmented message for it is dropped.
	Methods []TPMethodConfig `mapstructure:"methods" validate:"dive" yaml:"methods"`
}

// TPMethodConfig is one entry of the TP assembler configuration table,
// mirroring internal/ipc/tp.ConfigKey / ConfigEntry.
type TPMethodConfig struct {
	ServiceID        uint16 `mapstructure:"service_id" yaml:"service_id"`
	MajorVer         uint8  `mapstructure:"major_version" yaml:"major_version"`
	MethodID         uint16 `mapstructure:"method_id" yaml:"method_id"`
	MessageType      uint8  `mapstructure:"message_type" yaml:"message_type"`
	MaxMessageSize   uint32 `mapstructure:"max_message_size" validate:"required,gt=0" yaml:"max_message_size"`
	UseDeterministic bool   `mapstructure:"use_deterministic" yaml:"use_deterministic,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults, and
// validates the result (including the IpcUnicastAddress (0,0)-rejection
// rule, SPEC_FULL.md §10).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path in YAML form with restricted permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Validate checks struct tags via go-playground/validator and then the
// semantic rules that cannot be expressed as tags: no two instances may
// share an IpcUnicastAddress bound to conflicting services, and no
// instance may bind the reserved (0,0) address.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	seen := make(map[message.IpcUnicastAddress]message.ServiceInstanceIdentifier)
	for _, inst := range cfg.Instances {
		addr := inst.Address()
		if addr.IsUnspecified() {
			return fmt.Errorf("instance %s: address (0,0) is reserved and may not be bound", inst.Identifier())
		}
		if existing, ok := seen[addr]; ok && existing != inst.Identifier().ServiceInstanceIdentifier {
			return fmt.Errorf("address %s is bound by both %s and %s", addr, existing, inst.Identifier())
		}
		seen[addr] = inst.Identifier().ServiceInstanceIdentifier
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Telemetry: TelemetryConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
			Profiling:  ProfilingConfig{Endpoint: "http://localhost:4040"},
		},
		Metrics:           MetricsConfig{Port: 9090},
		ProcessingMode:    ProcessingModeThreadDriven,
		ReactorQueueDepth: 256,
		ShutdownTimeout:   10 * time.Second,
		TP:                TPConfig{DeterministicBufferSize: 0},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.ProcessingMode == "" {
		cfg.ProcessingMode = ProcessingModeThreadDriven
	}
	if cfg.ReactorQueueDepth == 0 {
		cfg.ReactorQueueDepth = 256
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("IPCBINDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ara-ipcbinding")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ara-ipcbinding")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
