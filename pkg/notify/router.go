// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/moative/overlap-escalation/pkg/escalation"
)

// ErrNoChannel is returned when a member has no usable delivery channel.
var ErrNoChannel = errors.New("no delivery channel configured")

// Router prefers Slack and falls back to mail for members without a
// webhook. Either notifier may be nil.
type Router struct {
	Slack escalation.Notifier
	Mail  escalation.Notifier
}

func (r Router) Notify(ctx context.Context, member escalation.TeamMember, n escalation.Notification) error {
	switch {
	case r.Slack != nil && member.WebhookURL != "" && member.ChannelID != "":
		return r.Slack.Notify(ctx, member, n)
	case r.Mail != nil && member.Email != "":
		return r.Mail.Notify(ctx, member, n)
	default:
		return fmt.Errorf("member %s: %w", member.Name, ErrNoChannel)
	}
}
