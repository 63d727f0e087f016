// Package sentinel contains the core domain types of the power sentinel.
//
// It defines Reading (one sample of external power, UPS power and pressure),
// the pure alarm evaluation, the mutable pressure threshold, the arm/disarm
// command outcome, and the text formats of notifications and status snapshots.
package sentinel
