// Package metrics defines Prometheus metrics for the overlap escalation
// service, covering triggers, escalation runs, message delivery, message
// composition, audit dispatch, mail delivery and API endpoints.
package metrics
