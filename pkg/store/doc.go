// Package store persists overlap records, scoring weights and the internal
// escalation team in SQLite. It implements the record, weight and team
// interfaces consumed by the escalation controller.
package store
