// Package metric provides Prometheus metrics for AskGate.
//
// It exposes counters and gauges for connection lifecycle, token
// issuance, request outcomes, and response routing, served together
// with the health endpoint on the metrics listener.
package metric
