// Package logger wraps zap for the sentinel binaries.
//
// It keeps a global sugared logger with a console encoder, lets services carry
// a named or field-enriched logger inside a context, and exposes helpers such
// as InfoKV or ErrorKV that resolve the logger from that context.
package logger
