package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// ErrMissingOID is returned when the agent does not answer for a configured OID.
var ErrMissingOID = errors.New("oid missing from response")

// SNMPSource polls raw sensor values from an SNMP agent.
// The OIDs hold the same raw values as the MQTT topics.
type SNMPSource struct {
	// settings describe the agent and OIDs.
	settings config.SNMPSensorConfig
	// timeout bounds a single request.
	timeout time.Duration
}

// NewSNMPSource returns a source for the configured agent.
func NewSNMPSource(settings config.SNMPSensorConfig, timeout time.Duration) *SNMPSource {
	return &SNMPSource{
		settings: settings,
		timeout:  timeout,
	}
}

// Read implements Source.
func (s *SNMPSource) Read(ctx context.Context) (sentinel.Reading, error) {
	client := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    s.settings.Target,
		Port:      s.settings.Port,
		Community: s.settings.Community,
		Version:   gosnmp.Version2c,
		Timeout:   s.timeout,
		Retries:   1,
		MaxOids:   gosnmp.MaxOids,
	}

	if err := client.Connect(); err != nil {
		return sentinel.Reading{}, fmt.Errorf("connect to snmp agent %s: %w", s.settings.Target, err)
	}

	defer func() {
		_ = client.Conn.Close()
	}()

	packet, err := client.Get([]string{s.settings.PowerOID, s.settings.UPSOID, s.settings.PressureOID})
	if err != nil {
		return sentinel.Reading{}, fmt.Errorf("snmp get from %s: %w", s.settings.Target, err)
	}

	return s.readingFrom(packet.Variables, time.Now())
}

// readingFrom converts the agent answer into a reading.
func (s *SNMPSource) readingFrom(variables []gosnmp.SnmpPDU, now time.Time) (sentinel.Reading, error) {
	values := make(map[string]int64, len(variables))

	for _, variable := range variables {
		switch variable.Type {
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
			continue
		default:
			values[normalizeOID(variable.Name)] = gosnmp.ToBigInt(variable.Value).Int64()
		}
	}

	lookup := func(oid string) (int64, error) {
		value, ok := values[normalizeOID(oid)]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingOID, oid)
		}

		return value, nil
	}

	status, err := lookup(s.settings.PowerOID)
	if err != nil {
		return sentinel.Reading{}, err
	}

	upsCounts, err := lookup(s.settings.UPSOID)
	if err != nil {
		return sentinel.Reading{}, err
	}

	pressureCounts, err := lookup(s.settings.PressureOID)
	if err != nil {
		return sentinel.Reading{}, err
	}

	return sentinel.Reading{
		Timestamp: now,
		Pressure:  PressureFromCounts(pressureCounts),
		PowerOK:   PowerFromStatus(byte(status)), //nolint:gosec // The status register is one byte wide.
		UPSOK:     UPSFromCounts(upsCounts),
	}, nil
}

// normalizeOID strips the leading dot gosnmp puts on returned names.
func normalizeOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}
