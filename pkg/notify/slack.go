// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/metrics"
	"github.com/moative/overlap-escalation/pkg/version"
)

// ResolveActionID is the action id of the RESOLVE button.
const ResolveActionID = "resolve_overlap"

// SlackConfig configures the Slack notifier.
type SlackConfig struct {
	Username  string
	IconEmoji string
	BotToken  string
	Timeout   time.Duration
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type     string    `json:"type"`
	Text     slackText `json:"text"`
	ActionID string    `json:"action_id"`
	Value    string    `json:"value"`
	Style    string    `json:"style,omitempty"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

// SlackPayload is the body posted to an incoming webhook.
type SlackPayload struct {
	Channel   string       `json:"channel"`
	Username  string       `json:"username,omitempty"`
	IconEmoji string       `json:"icon_emoji,omitempty"`
	Text      string       `json:"text"`
	Blocks    []slackBlock `json:"blocks"`
}

// SlackNotifier posts messages with a RESOLVE button to the member's
// incoming webhook.
type SlackNotifier struct {
	client *resty.Client
	cfg    SlackConfig
	log    *zap.SugaredLogger
}

// NewSlackNotifier creates a Slack notifier.
func NewSlackNotifier(cfg SlackConfig, log *zap.SugaredLogger) *SlackNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent("overlapd"))
	if cfg.BotToken != "" {
		client.SetAuthToken(cfg.BotToken)
	}
	return &SlackNotifier{client: client, cfg: cfg, log: log.Named("slack")}
}

// Payload builds the webhook body for a notification.
func (s *SlackNotifier) Payload(member escalation.TeamMember, n escalation.Notification) SlackPayload {
	button := slackElement{
		Type:     "button",
		Text:     slackText{Type: "plain_text", Text: "RESOLVE"},
		ActionID: ResolveActionID,
		Value:    n.RecordID,
		Style:    "primary",
	}
	return SlackPayload{
		Channel:   member.ChannelID,
		Username:  s.cfg.Username,
		IconEmoji: s.cfg.IconEmoji,
		Text:      n.Text,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: n.Text}},
			{Type: "actions", Elements: []slackElement{button}},
		},
	}
}

// Notify posts the message to member's webhook.
func (s *SlackNotifier) Notify(ctx context.Context, member escalation.TeamMember, n escalation.Notification) error {
	if member.WebhookURL == "" || member.ChannelID == "" {
		return fmt.Errorf("member %s: %w", member.Name, ErrNoChannel)
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(s.Payload(member, n)).
		Post(member.WebhookURL)
	if err != nil {
		metrics.SlackSendFailure.Inc()
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	if resp.IsError() {
		metrics.SlackSendFailure.Inc()
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
	metrics.SlackSendSuccess.Inc()
	s.log.Debugw("Slack message sent", "channel", member.ChannelID, "recordId", n.RecordID, "tier", n.Tier, "index", n.Index)
	return nil
}
