// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/metrics"
)

func TestSlackNotifierPostsButtonPayload(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{Username: "Moat", IconEmoji: ":ghost:", BotToken: "xoxb-1"}, zaptest.NewLogger(t).Sugar())
	member := escalation.TeamMember{Name: "Lee", ChannelID: "C1", WebhookURL: srv.URL}

	before := testutil.ToFloat64(metrics.SlackSendSuccess)
	err := n.Notify(context.Background(), member, escalation.Notification{RecordID: "rec-9", Tier: 1, Index: 1, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SlackSendSuccess))

	assert.Equal(t, "Bearer xoxb-1", auth)
	assert.Equal(t, "C1", got["channel"])
	assert.Equal(t, "Moat", got["username"])
	assert.Equal(t, ":ghost:", got["icon_emoji"])

	blocks := got["blocks"].([]any)
	require.Len(t, blocks, 2)
	section := blocks[0].(map[string]any)
	assert.Equal(t, "hello", section["text"].(map[string]any)["text"])
	button := blocks[1].(map[string]any)["elements"].([]any)[0].(map[string]any)
	assert.Equal(t, ResolveActionID, button["action_id"])
	assert.Equal(t, "rec-9", button["value"])
	// the button posts back through Slack interactivity; a plain link would GET
	assert.NotContains(t, button, "url")
}

func TestSlackNotifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{}, zaptest.NewLogger(t).Sugar())
	before := testutil.ToFloat64(metrics.SlackSendFailure)
	err := n.Notify(context.Background(), escalation.TeamMember{ChannelID: "C", WebhookURL: srv.URL}, escalation.Notification{RecordID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SlackSendFailure))

	err = n.Notify(context.Background(), escalation.TeamMember{Name: "x"}, escalation.Notification{})
	assert.True(t, errors.Is(err, ErrNoChannel))
}

func TestSlackPayloadWithoutActionURL(t *testing.T) {
	n := NewSlackNotifier(SlackConfig{}, zaptest.NewLogger(t).Sugar())
	p := n.Payload(escalation.TeamMember{ChannelID: "C"}, escalation.Notification{RecordID: "r", Text: "t"})
	assert.Empty(t, p.Blocks[1].Elements[0].URL)
	assert.Equal(t, "t", p.Text)
}
