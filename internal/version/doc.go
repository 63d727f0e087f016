// Package version carries the build metadata of the sentinel binaries.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version
