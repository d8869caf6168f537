// SPDX-FileCopyrightText: 2025 Moative
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

const (
	// === Escalation lifecycle events ===
	EventEscalationTriggered EventType = "escalation.triggered"
	EventEscalationStarted   EventType = "escalation.started"
	EventEscalationResolved  EventType = "escalation.resolved"
	EventEscalationCancelled EventType = "escalation.cancelled"
	EventEscalationExhausted EventType = "escalation.exhausted"

	// === Message delivery events ===
	EventMessageSent    EventType = "message.sent"
	EventMessageFailed  EventType = "message.failed"
	EventMessageSkipped EventType = "message.skipped"

	// === Configuration change events ===
	EventWeightsUpdated EventType = "weights.updated"
	EventTeamUpdated    EventType = "team.updated"
	EventRecordUpdated  EventType = "record.updated"
)

// Severity represents the importance level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single audit trail entry.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`

	// RecordID is the overlap record the event refers to, if any.
	RecordID string `json:"recordId,omitempty"`

	// Actor is who caused the event: a resolver identity, "api", "startup" or "runner".
	Actor string `json:"actor,omitempty"`

	// Delivery details for message events.
	Tier         int    `json:"tier,omitempty"`
	Member       string `json:"member,omitempty"`
	MessageIndex int    `json:"messageIndex,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(t EventType, recordID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Severity:  severityFor(t),
		Timestamp: time.Now().UTC(),
		RecordID:  recordID,
	}
}

// WithDetail adds a detail entry and returns the event for chaining.
func (e *Event) WithDetail(key string, value interface{}) *Event {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func severityFor(t EventType) Severity {
	switch t {
	case EventMessageFailed, EventMessageSkipped, EventEscalationExhausted:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
