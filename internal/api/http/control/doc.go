// Package control implements the HTTP transport for the sentinel command
// surface, shaped after the Particle cloud variable/function API:
//
//	GET  /v1/variables             list of variable names
//	GET  /v1/variables/{name}      {"name": ..., "result": ...}
//	POST /v1/functions/{name}      form field or JSON "arg" -> {"name": ..., "return_value": ...}
//	GET  /metrics                  Prometheus metrics
//	GET  /healthz                  liveness probe
package control
