package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/gomail.v2"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/metrics"
)

var _ Sender = (*sender)(nil)

type fakeDialer struct {
	failures int
	calls    int
	last     *gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.calls++
	d.last = m[0]
	if d.calls <= d.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestSenderRetries(t *testing.T) {
	d := &fakeDialer{failures: 2}
	s := newSender(d, MailConfig{Host: "smtp.retry", RetryCount: 3, RetryBackoffMs: 1}, zaptest.NewLogger(t).Sugar())

	before := testutil.ToFloat64(metrics.MailSendSuccess.WithLabelValues("smtp.retry"))
	require.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "subj", "body"))
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MailSendSuccess.WithLabelValues("smtp.retry")))
	assert.Equal(t, []string{"a@example.com"}, d.last.GetHeader("To"))
	assert.Equal(t, []string{"subj"}, d.last.GetHeader("Subject"))
}

func TestSenderGivesUp(t *testing.T) {
	d := &fakeDialer{failures: 10}
	s := newSender(d, MailConfig{Host: "smtp.down", RetryCount: 1, RetryBackoffMs: 1}, zaptest.NewLogger(t).Sugar())

	before := testutil.ToFloat64(metrics.MailSendFailure.WithLabelValues("smtp.down"))
	err := s.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MailSendFailure.WithLabelValues("smtp.down")))
}

func TestSenderStopsOnCancel(t *testing.T) {
	d := &fakeDialer{failures: 10}
	s := newSender(d, MailConfig{Host: "smtp.cancel", RetryCount: 5, RetryBackoffMs: 10000}, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, []string{"a@example.com"}, "s", "b"), context.Canceled)
	assert.Equal(t, 1, d.calls)
}

func TestMailNotifier(t *testing.T) {
	d := &fakeDialer{}
	n := NewMailNotifier(newSender(d, MailConfig{Host: "smtp.ok"}, zaptest.NewLogger(t).Sugar()))

	err := n.Notify(context.Background(), escalation.TeamMember{Name: "Ria", Email: "ria@example.com"},
		escalation.Notification{RecordID: "r1", Tier: 2, Index: 2, Text: "nudge"})
	require.NoError(t, err)
	assert.Equal(t, []string{"[Overlap r1] follow-up 2 (tier 2)"}, d.last.GetHeader("Subject"))

	err = n.Notify(context.Background(), escalation.TeamMember{Name: "NoMail"}, escalation.Notification{})
	assert.ErrorIs(t, err, ErrNoChannel)
}
