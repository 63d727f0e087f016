// Package monitor runs the sentinel daemon.
//
// Device holds the state shared between the main loop and remote commands.
// Monitor runs the main loop: each tick reads the sensors, evaluates the
// alarm condition, runs the notification gate and refreshes the exposed
// variables. Run wires configuration, transports and the loop together.
package monitor
