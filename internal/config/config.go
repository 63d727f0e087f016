package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the sentinel daemon.
type Config struct {
	// LogLevel is the minimum zap level, e.g. "info" or "debug".
	LogLevel string `yaml:"log_level"`
	// TickInterval is the main loop cadence.
	TickInterval time.Duration `yaml:"tick_interval"`
	// NotifyInterval is the minimum spacing of repeated notifications.
	NotifyInterval time.Duration `yaml:"notify_interval"`
	// GateMode selects the notification gating policy.
	GateMode GateMode `yaml:"gate_mode"`
	// DefaultThreshold is the pressure alarm threshold in mbar used at startup.
	DefaultThreshold float64 `yaml:"default_threshold"`
	// Sensor configures where readings come from.
	Sensor SensorConfig `yaml:"sensor"`
	// Publisher configures where notifications go.
	Publisher PublisherConfig `yaml:"publisher"`
	// Output configures the auxiliary LED output.
	Output OutputConfig `yaml:"output"`
	// Control configures the remote command surfaces.
	Control ControlConfig `yaml:"control"`
	// MQTT holds the broker connection shared by every MQTT-backed component.
	MQTT MQTTConfig `yaml:"mqtt"`
}

// GateMode names a notification gating policy.
type GateMode string

const (
	// GateModeEdgeInterval emits on every alarm transition and periodically while alarmed.
	GateModeEdgeInterval GateMode = "edge_interval"
	// GateModeLevel emits only while alarmed, at most once per interval.
	GateModeLevel GateMode = "level"
)

// SensorConfig selects and configures the sensor source.
type SensorConfig struct {
	// Kind is one of "static", "mqtt" or "snmp".
	Kind string `yaml:"kind"`
	// ReadTimeout bounds a single sensor read.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// Static is the fixed reading served by the static source.
	Static StaticSensorConfig `yaml:"static"`
	// MQTT lists the topics carrying raw sensor values.
	MQTT MQTTSensorConfig `yaml:"mqtt"`
	// SNMP describes the agent exposing raw sensor values.
	SNMP SNMPSensorConfig `yaml:"snmp"`
}

// StaticSensorConfig is the reading served by the static source.
type StaticSensorConfig struct {
	PowerOK  bool    `yaml:"power_ok"`
	UPSOK    bool    `yaml:"ups_ok"`
	Pressure float64 `yaml:"pressure"`
}

// MQTTSensorConfig lists the topics the MQTT source subscribes to.
type MQTTSensorConfig struct {
	// PowerTopic carries the PMIC system status byte.
	PowerTopic string `yaml:"power_topic"`
	// UPSTopic carries the UPS sense ADC counts.
	UPSTopic string `yaml:"ups_topic"`
	// PressureTopic carries the pressure gauge ADC counts.
	PressureTopic string `yaml:"pressure_topic"`
	// MaxAge is how long the last update stays fresh.
	// Older readings are served flagged as stale.
	MaxAge time.Duration `yaml:"max_age"`
}

// SNMPSensorConfig describes the SNMP agent and the OIDs holding raw values.
type SNMPSensorConfig struct {
	Target      string `yaml:"target"`
	Port        uint16 `yaml:"port"`
	Community   string `yaml:"community"`
	PowerOID    string `yaml:"power_oid"`
	UPSOID      string `yaml:"ups_oid"`
	PressureOID string `yaml:"pressure_oid"`
}

// PublisherConfig selects and configures the notification transport.
type PublisherConfig struct {
	// Kind is one of "log", "mqtt" or "kafka".
	Kind string `yaml:"kind"`
	// EventName is the name of alarm events.
	EventName string `yaml:"event_name"`
	// TTL is the time-to-live attached to events.
	TTL time.Duration `yaml:"ttl"`
	// Scope is "private" or "public".
	Scope string `yaml:"scope"`
	// Timeout bounds a single publish call.
	Timeout time.Duration `yaml:"timeout"`
	// TopicPrefix prefixes MQTT event topics.
	TopicPrefix string `yaml:"topic_prefix"`
	// Kafka configures the Kafka transport.
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// OutputConfig selects the LED output implementation.
type OutputConfig struct {
	// Kind is "memory" or "mqtt".
	Kind string `yaml:"kind"`
	// Topic receives retained "on"/"off" payloads for the mqtt kind.
	Topic string `yaml:"topic"`
}

// ControlConfig configures the remote command surfaces.
type ControlConfig struct {
	// GRPCAddress is the gRPC listen address; empty disables it.
	GRPCAddress string `yaml:"grpc_address"`
	// HTTPAddress is the HTTP listen address; empty disables it.
	HTTPAddress string `yaml:"http_address"`
	// CommandsPerSecond limits the command rate across all callers.
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	// CommandBurst is the token bucket size of the command limiter.
	CommandBurst int `yaml:"command_burst"`
}

// MQTTConfig is the broker connection shared by MQTT components.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "power-sentinel.yaml"

	// DefaultTickInterval is the main loop cadence.
	DefaultTickInterval = time.Second

	// DefaultNotifyInterval is the repeat interval of alarm notifications.
	DefaultNotifyInterval = 120 * time.Second

	// DefaultThreshold is the pressure alarm threshold in mbar.
	DefaultThreshold = 2500.0

	// DefaultReadTimeout bounds a single sensor read.
	DefaultReadTimeout = 2 * time.Second

	// DefaultMaxAgeTicks is the MQTT sensor max age in tick intervals.
	DefaultMaxAgeTicks = 5

	// DefaultEventName is the name of alarm events.
	DefaultEventName = "external_power"

	// DefaultEventTTL is the time-to-live of alarm events.
	DefaultEventTTL = 60 * time.Second

	// DefaultPublishTimeout bounds a single publish call.
	DefaultPublishTimeout = 5 * time.Second

	// DefaultTopicPrefix prefixes MQTT topics written by the daemon.
	DefaultTopicPrefix = "sentinel"

	// DefaultGRPCAddress is the default gRPC control address.
	DefaultGRPCAddress = "127.0.0.1:50051"

	// DefaultCommandsPerSecond limits remote commands.
	DefaultCommandsPerSecond = 5

	// DefaultCommandBurst is the command limiter bucket size.
	DefaultCommandBurst = 10

	// DefaultMQTTBroker is the broker used when none is configured.
	DefaultMQTTBroker = "tcp://127.0.0.1:1883"

	// DefaultMQTTClientID identifies the daemon on the broker.
	DefaultMQTTClientID = "power-sentinel"

	// DefaultSNMPPort is the standard SNMP agent port.
	DefaultSNMPPort = 161

	// DefaultFilePermissions is the permission of saved config files.
	DefaultFilePermissions = 0o600

	// Sensor, publisher and output kinds.
	KindStatic = "static"
	KindMQTT   = "mqtt"
	KindSNMP   = "snmp"
	KindLog    = "log"
	KindKafka  = "kafka"
	KindMemory = "memory"

	// ScopePrivate and ScopePublic are the event visibility scopes.
	ScopePrivate = "private"
	ScopePublic  = "public"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
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

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
//
//nolint:cyclop // Flat list of independent checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.TickInterval < 0 || cfg.NotifyInterval < 0 {
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}

	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	if cfg.NotifyInterval == 0 {
		cfg.NotifyInterval = DefaultNotifyInterval
	}

	switch cfg.GateMode {
	case "":
		cfg.GateMode = GateModeEdgeInterval
	case GateModeEdgeInterval, GateModeLevel:
	default:
		return fmt.Errorf("%w: unknown gate mode %q", ErrInvalidConfig, cfg.GateMode)
	}

	if math.IsNaN(cfg.DefaultThreshold) || math.IsInf(cfg.DefaultThreshold, 0) {
		return fmt.Errorf("%w: default threshold must be finite", ErrInvalidConfig)
	}

	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = DefaultThreshold
	}

	if err := validateSensor(&cfg.Sensor, cfg.TickInterval); err != nil {
		return err
	}

	if err := validatePublisher(&cfg.Publisher); err != nil {
		return err
	}

	if err := validateOutput(&cfg.Output); err != nil {
		return err
	}

	if err := validateControl(&cfg.Control); err != nil {
		return err
	}

	return validateMQTT(&cfg.MQTT)
}

// UsesMQTT reports whether any configured component needs the MQTT broker.
func (c *Config) UsesMQTT() bool {
	return c.Sensor.Kind == KindMQTT || c.Publisher.Kind == KindMQTT || c.Output.Kind == KindMQTT
}

func validateSensor(s *SensorConfig, tick time.Duration) error {
	if s.Kind == "" {
		s.Kind = KindStatic
	}

	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}

	if s.MQTT.MaxAge < 0 {
		return fmt.Errorf("%w: mqtt sensor max age must not be negative", ErrInvalidConfig)
	}

	if s.MQTT.MaxAge == 0 {
		s.MQTT.MaxAge = DefaultMaxAgeTicks * tick
	}

	switch s.Kind {
	case KindStatic:
		return nil
	case KindMQTT:
		if s.MQTT.PowerTopic == "" || s.MQTT.UPSTopic == "" || s.MQTT.PressureTopic == "" {
			return fmt.Errorf("%w: mqtt sensor needs power, ups and pressure topics", ErrInvalidConfig)
		}

		return nil
	case KindSNMP:
		if s.SNMP.Target == "" {
			return fmt.Errorf("%w: snmp sensor needs a target", ErrInvalidConfig)
		}

		if s.SNMP.PowerOID == "" || s.SNMP.UPSOID == "" || s.SNMP.PressureOID == "" {
			return fmt.Errorf("%w: snmp sensor needs power, ups and pressure OIDs", ErrInvalidConfig)
		}

		if s.SNMP.Port == 0 {
			s.SNMP.Port = DefaultSNMPPort
		}

		if s.SNMP.Community == "" {
			s.SNMP.Community = "public"
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown sensor kind %q", ErrInvalidConfig, s.Kind)
	}
}

func validatePublisher(p *PublisherConfig) error {
	if p.Kind == "" {
		p.Kind = KindLog
	}

	if p.EventName == "" {
		p.EventName = DefaultEventName
	}

	if p.TTL <= 0 {
		p.TTL = DefaultEventTTL
	}

	if p.Timeout <= 0 {
		p.Timeout = DefaultPublishTimeout
	}

	if p.TopicPrefix == "" {
		p.TopicPrefix = DefaultTopicPrefix
	}

	p.Scope = strings.ToLower(p.Scope)
	switch p.Scope {
	case "":
		p.Scope = ScopePrivate
	case ScopePrivate, ScopePublic:
	default:
		return fmt.Errorf("%w: unknown event scope %q", ErrInvalidConfig, p.Scope)
	}

	switch p.Kind {
	case KindLog, KindMQTT:
		return nil
	case KindKafka:
		if len(p.Kafka.Brokers) == 0 || p.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka publisher needs brokers and a topic", ErrInvalidConfig)
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown publisher kind %q", ErrInvalidConfig, p.Kind)
	}
}

func validateOutput(o *OutputConfig) error {
	if o.Kind == "" {
		o.Kind = KindMemory
	}

	switch o.Kind {
	case KindMemory:
		return nil
	case KindMQTT:
		if o.Topic == "" {
			o.Topic = DefaultTopicPrefix + "/led"
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown output kind %q", ErrInvalidConfig, o.Kind)
	}
}

func validateControl(c *ControlConfig) error {
	if c.GRPCAddress == "" && c.HTTPAddress == "" {
		c.GRPCAddress = DefaultGRPCAddress
	}

	for _, address := range []string{c.GRPCAddress, c.HTTPAddress} {
		if address == "" {
			continue
		}

		if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
			return fmt.Errorf("%w: invalid listen address %q: %w", ErrInvalidConfig, address, err)
		}
	}

	if c.CommandsPerSecond <= 0 {
		c.CommandsPerSecond = DefaultCommandsPerSecond
	}

	if c.CommandBurst <= 0 {
		c.CommandBurst = DefaultCommandBurst
	}

	return nil
}

func validateMQTT(m *MQTTConfig) error {
	if m.Broker == "" {
		m.Broker = DefaultMQTTBroker
	}

	if _, err := url.ParseRequestURI(m.Broker); err != nil {
		return fmt.Errorf("%w: invalid mqtt broker URI: %w", ErrInvalidConfig, err)
	}

	if m.ClientID == "" {
		m.ClientID = DefaultMQTTClientID
	}

	if m.QoS > 2 { //nolint:mnd // MQTT defines QoS 0, 1 and 2.
		return fmt.Errorf("%w: mqtt qos must be 0, 1 or 2", ErrInvalidConfig)
	}

	return nil
}
