// Package control is the remote command and variable surface of the sentinel.
//
// Commands form a closed set (led, alarm, threshold, test) parsed from their
// wire names and dispatched by a single switch. Every command returns the
// integer code remote callers expect. Variables expose the latest readings and
// the status snapshot read-only.
package control
