// Package control implements the gRPC transport for the sentinel command
// surface.
//
// The service is declared by hand over protobuf well-known types, so no
// generated code is needed: GetVariable takes a StringValue and returns a
// Value, CallFunction takes a Struct with "name" and "argument" fields and
// returns an Int64Value. The caller identity travels in request metadata.
package control
