package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/metrics"
)

// MailConfig configures the SMTP sender.
type MailConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	SenderAddress      string
	SenderName         string
	InsecureSkipVerify bool
	RetryCount         int
	RetryBackoffMs     int
}

type Sender interface {
	Send(ctx context.Context, receivers []string, subject, body string) error
	GetHost() string
}

// dialer is the part of *gomail.Dialer the sender uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type sender struct {
	dialer         dialer
	host           string
	senderAddress  string
	senderName     string
	retryCount     int
	retryBackoffMs int
	log            *zap.SugaredLogger
}

func NewSender(cfg MailConfig, log *zap.SugaredLogger) Sender {
	log = log.Named("mail")
	log.Infow("Initializing new mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warnw("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Configurable for testing
	}
	return newSender(d, cfg, log)
}

func newSender(d dialer, cfg MailConfig, log *zap.SugaredLogger) *sender {
	// Determine sender address and name, use sensible defaults when missing
	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = "noreply@moative.com"
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Overlap Escalation"
	}

	// Set retry defaults if not configured
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryBackoffMs := cfg.RetryBackoffMs
	if retryBackoffMs <= 0 {
		retryBackoffMs = 100
	}

	return &sender{
		dialer:         d,
		host:           cfg.Host,
		senderAddress:  senderAddr,
		senderName:     senderName,
		retryCount:     retryCount,
		retryBackoffMs: retryBackoffMs,
		log:            log,
	}
}

func (s *sender) Send(ctx context.Context, receivers []string, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", receivers...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.log.Infow("Mail sent", "receivers", len(receivers), "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
			return nil
		}

		lastErr = err
		if attempt == s.retryCount {
			break
		}
		s.log.Warnw("Mail send attempt failed, retrying", "attempt", attempt+1, "backoffMs", backoffMs, "error", err)
		select {
		case <-ctx.Done():
			metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
			return ctx.Err()
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
		}
		// Exponential backoff capped at ~32 seconds
		backoffMs = int(math.Min(float64(backoffMs)*2, 32000))
	}

	s.log.Errorw("Failed to send mail", "attempts", s.retryCount+1, "error", lastErr)
	metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
	return lastErr
}

func (s *sender) GetHost() string {
	return s.host
}

// MailNotifier delivers notifications by mail to members with an email
// address.
type MailNotifier struct {
	sender Sender
}

func NewMailNotifier(sender Sender) *MailNotifier {
	return &MailNotifier{sender: sender}
}

// Subject is the mail subject of a notification.
func Subject(n escalation.Notification) string {
	return fmt.Sprintf("[Overlap %s] %s (tier %d)", n.RecordID, escalation.MessageKind(n.Index), n.Tier)
}

func (m *MailNotifier) Notify(ctx context.Context, member escalation.TeamMember, n escalation.Notification) error {
	if member.Email == "" {
		return fmt.Errorf("member %s: %w", member.Name, ErrNoChannel)
	}
	return m.sender.Send(ctx, []string{member.Email}, Subject(n), n.Text)
}
