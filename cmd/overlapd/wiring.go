package main

import (
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/compose"
	"github.com/moative/overlap-escalation/pkg/config"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/notify"
)

// buildComposers returns the primary composer and the template fallback.
// With the template provider the fallback is nil.
func buildComposers(cfg config.Config, log *zap.SugaredLogger) (escalation.Composer, escalation.Composer, error) {
	templates, err := compose.NewTemplateComposer(nil)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Composer.Provider != "gemini" {
		log.Infow("Using template composer")
		return templates, nil, nil
	}
	gemini, err := compose.NewGeminiComposer(compose.GeminiConfig{
		BaseURL:     cfg.Composer.BaseURL,
		APIKey:      cfg.Composer.APIKey,
		Model:       cfg.Composer.Model,
		CompanyName: cfg.Composer.CompanyName,
		Timeout:     config.MustDuration(cfg.Composer.Timeout),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return gemini, templates, nil
}

func buildNotifier(cfg config.Config, disableSlack bool, log *zap.SugaredLogger) notify.Router {
	var router notify.Router
	if disableSlack {
		log.Infow("Slack delivery disabled")
	} else {
		router.Slack = notify.NewSlackNotifier(notify.SlackConfig{
			Username:  cfg.Slack.Username,
			IconEmoji: cfg.Slack.IconEmoji,
			BotToken:  cfg.Slack.BotToken,
			Timeout:   config.MustDuration(cfg.Slack.Timeout),
		}, log)
	}
	if cfg.Mail.Enabled() {
		router.Mail = notify.NewMailNotifier(notify.NewSender(notify.MailConfig{
			Host:               cfg.Mail.Host,
			Port:               cfg.Mail.Port,
			User:               cfg.Mail.User,
			Password:           cfg.Mail.Password,
			SenderAddress:      cfg.Mail.SenderAddress,
			SenderName:         cfg.Mail.SenderName,
			InsecureSkipVerify: cfg.Mail.InsecureSkipVerify,
			RetryCount:         cfg.Mail.RetryCount,
			RetryBackoffMs:     cfg.Mail.RetryBackoffMs,
		}, log))
	} else {
		log.Infow("Mail delivery disabled")
	}
	return router
}

func buildAudit(cfg config.Config, zl *zap.Logger) (*audit.Service, error) {
	var sinks []audit.Sink
	if cfg.Audit.LogSink == nil || *cfg.Audit.LogSink {
		sinks = append(sinks, audit.NewLogSink(zl))
	}
	if len(cfg.Audit.Kafka.Brokers) > 0 {
		k := cfg.Audit.Kafka
		kafkaCfg := audit.KafkaSinkConfig{
			Brokers:            k.Brokers,
			Topic:              k.Topic,
			TLS:                k.TLS,
			InsecureSkipVerify: k.InsecureSkipVerify,
			SASLMechanism:      k.SASLMechanism,
			Username:           k.Username,
			Password:           k.Password,
			BatchSize:          k.BatchSize,
		}
		if k.BatchTimeout != "" {
			kafkaCfg.BatchTimeout = config.MustDuration(k.BatchTimeout)
		}
		sink, err := audit.NewKafkaSink(kafkaCfg, zl)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return audit.NewService(zl.Sugar(), cfg.Audit.QueueSize, sinks...), nil
}
