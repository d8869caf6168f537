// Package audit provides the escalation audit trail, dispatching escalation
// lifecycle events asynchronously to configurable sinks (structured log,
// Kafka).
package audit
