package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate_Defaults checks that an empty config is completed with defaults.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultTickInterval, cfg.TickInterval)
	require.Equal(t, DefaultNotifyInterval, cfg.NotifyInterval)
	require.Equal(t, GateModeEdgeInterval, cfg.GateMode)
	require.InDelta(t, DefaultThreshold, cfg.DefaultThreshold, 0)
	require.Equal(t, KindStatic, cfg.Sensor.Kind)
	require.Equal(t, DefaultReadTimeout, cfg.Sensor.ReadTimeout)
	require.Equal(t, DefaultMaxAgeTicks*DefaultTickInterval, cfg.Sensor.MQTT.MaxAge)
	require.Equal(t, KindLog, cfg.Publisher.Kind)
	require.Equal(t, DefaultEventName, cfg.Publisher.EventName)
	require.Equal(t, DefaultEventTTL, cfg.Publisher.TTL)
	require.Equal(t, ScopePrivate, cfg.Publisher.Scope)
	require.Equal(t, KindMemory, cfg.Output.Kind)
	require.Equal(t, DefaultGRPCAddress, cfg.Control.GRPCAddress)
	require.Equal(t, DefaultMQTTBroker, cfg.MQTT.Broker)
	require.False(t, cfg.UsesMQTT())
}

// TestValidate_Rejects covers malformed settings.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"gate mode":      {GateMode: "sometimes"},
		"negative tick":  {TickInterval: -time.Second},
		"sensor kind":    {Sensor: SensorConfig{Kind: "serial"}},
		"mqtt topics":    {Sensor: SensorConfig{Kind: KindMQTT, MQTT: MQTTSensorConfig{PowerTopic: "p"}}},
		"mqtt max age":   {Sensor: SensorConfig{MQTT: MQTTSensorConfig{MaxAge: -time.Second}}},
		"snmp target":    {Sensor: SensorConfig{Kind: KindSNMP}},
		"publisher kind": {Publisher: PublisherConfig{Kind: "pigeon"}},
		"kafka brokers":  {Publisher: PublisherConfig{Kind: KindKafka, Kafka: KafkaConfig{Topic: "alarms"}}},
		"event scope":    {Publisher: PublisherConfig{Scope: "secret"}},
		"output kind":    {Output: OutputConfig{Kind: "gpio"}},
		"listen address": {Control: ControlConfig{GRPCAddress: "bad:address"}},
		"mqtt qos":       {MQTT: MQTTConfig{QoS: 3}},
		"mqtt broker":    {MQTT: MQTTConfig{Broker: "not a uri"}},
	}

	for name, cfg := range cases {
		require.ErrorIs(t, Validate(cfg), ErrInvalidConfig, name)
	}

	require.Error(t, Validate(nil))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sentinel.yaml")

	cfg := &Config{
		NotifyInterval:   time.Minute,
		GateMode:         GateModeLevel,
		DefaultThreshold: 2400,
		Sensor: SensorConfig{
			Kind: KindMQTT,
			MQTT: MQTTSensorConfig{
				PowerTopic:    "lab/power",
				UPSTopic:      "lab/ups",
				PressureTopic: "lab/pressure",
			},
		},
		Publisher: PublisherConfig{Kind: KindMQTT},
		Control:   ControlConfig{HTTPAddress: "127.0.0.1:8080"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.NotifyInterval, loaded.NotifyInterval)
	require.Equal(t, GateModeLevel, loaded.GateMode)
	require.InDelta(t, 2400.0, loaded.DefaultThreshold, 0)
	require.Equal(t, cfg.Sensor.MQTT, loaded.Sensor.MQTT)
	require.Equal(t, "127.0.0.1:8080", loaded.Control.HTTPAddress)
	require.Empty(t, loaded.Control.GRPCAddress)
	require.True(t, loaded.UsesMQTT())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_MissingFile reports read errors.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
