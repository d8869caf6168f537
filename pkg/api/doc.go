// Package api implements the Gin-based HTTP server of the overlap escalation
// service: REST endpoints for escalation control, crossbeam records, the
// internal team roster and scoring weights, plus health, version and
// Prometheus metrics endpoints.
package api
