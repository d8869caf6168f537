// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"fmt"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

// TeamMember is one recipient in the escalation hierarchy.
type TeamMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Hierarchy   int    `json:"hierarchy"`
	ChannelID   string `json:"channel_id"`
	WebhookURL  string `json:"webhook_url"`
	Email       string `json:"email,omitempty"`
	MaxMessage  int    `json:"max_message"`
}

// Reachable reports whether any delivery channel is configured.
func (m TeamMember) Reachable() bool {
	return (m.WebhookURL != "" && m.ChannelID != "") || m.Email != ""
}

// HierarchyLevel groups the members of one tier. Tier 1 is the most junior.
type HierarchyLevel struct {
	Tier    int          `json:"tier"`
	Members []TeamMember `json:"members"`
}

// GroupByTier builds ascending hierarchy levels from a flat roster, keeping
// roster order inside a tier.
func GroupByTier(members []TeamMember) []HierarchyLevel {
	byTier := map[int][]TeamMember{}
	maxTier := 0
	for _, m := range members {
		byTier[m.Hierarchy] = append(byTier[m.Hierarchy], m)
		if m.Hierarchy > maxTier {
			maxTier = m.Hierarchy
		}
	}
	levels := make([]HierarchyLevel, 0, maxTier)
	for tier := 1; tier <= maxTier; tier++ {
		levels = append(levels, HierarchyLevel{Tier: tier, Members: byTier[tier]})
	}
	return levels
}

// Designations maps each tier to the first designation seen for it.
func Designations(levels []HierarchyLevel) map[int]string {
	out := map[int]string{}
	for _, lvl := range levels {
		for _, m := range lvl.Members {
			if m.Designation == "" {
				continue
			}
			if _, ok := out[lvl.Tier]; !ok {
				out[lvl.Tier] = m.Designation
			}
		}
	}
	return out
}

// RecordStore provides record snapshots.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]overlap.Record, error)
	GetRecord(ctx context.Context, id string) (*overlap.Record, error)
}

// WeightStore provides the attribute weights of a section.
type WeightStore interface {
	GetWeights(ctx context.Context, section overlap.Section) (map[string]float64, error)
}

// TeamDirectory provides the ordered escalation hierarchy.
type TeamDirectory interface {
	Hierarchy(ctx context.Context) ([]HierarchyLevel, error)
}

// ComposeRequest carries everything a composer may use for one message.
type ComposeRequest struct {
	Record       overlap.Record
	Context      overlap.PriorityContext
	Member       TeamMember
	Tier         int
	Index        int
	Designations map[int]string
}

// IsFollowUp reports whether the message is a follow-up rather than the main one.
func (r ComposeRequest) IsFollowUp() bool {
	return r.Index > 1
}

// Kind labels the message: "main" or "follow-up N".
func (r ComposeRequest) Kind() string {
	return MessageKind(r.Index)
}

// MessageKind labels the index-th message sent to a member.
func MessageKind(index int) string {
	if index <= 1 {
		return "main"
	}
	return fmt.Sprintf("follow-up %d", index)
}

// Composer produces the text of one escalation message.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

// Notification is a composed message ready for delivery.
type Notification struct {
	RecordID string
	Tier     int
	Index    int
	Text     string
}

// Notifier delivers a notification to one member.
type Notifier interface {
	Notify(ctx context.Context, member TeamMember, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, member TeamMember, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, member TeamMember, n Notification) error {
	return f(ctx, member, n)
}
