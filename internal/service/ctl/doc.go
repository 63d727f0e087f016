// Package ctl implements the operations of the sentinelctl client: reading
// variables, calling commands, rendering the status in plain language and
// watching it over time.
package ctl
