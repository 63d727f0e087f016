// Package sensor provides the sources of installation readings.
//
// Every source implements Source. Static serves a settable reading, MQTTSource
// follows raw values published by a sensor node, and SNMPSource polls raw
// values from an SNMP agent. Bounded wraps any source with a read timeout and
// falls back to the last good reading flagged as stale.
package sensor
