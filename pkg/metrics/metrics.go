package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trigger metrics, result is one of started/busy/no_candidate/failed.
	TriggerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_trigger_requests_total",
		Help: "Total number of escalation trigger attempts grouped by result",
	}, []string{"source", "result"})

	// Escalation run lifecycle metrics
	EscalationsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_escalations_started_total",
		Help: "Total number of escalation runs started",
	})
	EscalationsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_escalations_finished_total",
		Help: "Total number of escalation runs finished grouped by outcome (resolved/exhausted/cancelled)",
	}, []string{"outcome"})
	EscalationActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overlap_escalation_active",
		Help: "1 while an escalation run is in progress, 0 otherwise",
	})
	Resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_resolutions_total",
		Help: "Total number of resolve requests grouped by whether they hit the active escalation",
	}, []string{"active"})

	// Message metrics. Keep tier as the only per-message label to bound cardinality.
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_messages_sent_total",
		Help: "Total number of escalation messages delivered",
	}, []string{"tier"})
	MessagesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_messages_failed_total",
		Help: "Total number of escalation messages that could not be delivered",
	}, []string{"tier"})
	MembersSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_members_skipped_total",
		Help: "Total number of team members skipped during a run grouped by reason",
	}, []string{"reason"})
	ComposeFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_compose_fallbacks_total",
		Help: "Total number of messages that fell back to the template composer",
	}, []string{"composer"})

	// Delivery channel metrics
	SlackSendSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_slack_send_success_total",
		Help: "Total number of successful Slack webhook posts",
	})
	SlackSendFailure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_slack_send_failure_total",
		Help: "Total number of failed Slack webhook posts",
	})
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	// Audit metrics
	AuditEventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_audit_events_emitted_total",
		Help: "Total number of audit events accepted for dispatch",
	}, []string{"type"})
	AuditEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_audit_events_dropped_total",
		Help: "Total number of audit events dropped because the queue was full or closed",
	})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_audit_sink_errors_total",
		Help: "Total number of audit sink write failures",
	}, []string{"sink"})

	// API endpoint metrics
	APIEndpointRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_api_endpoint_requests_total",
		Help: "Total number of API endpoint requests",
	}, []string{"endpoint"})
	APIEndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_api_endpoint_errors_total",
		Help: "Total number of API endpoint errors grouped by status code",
	}, []string{"endpoint", "status"})
	APIRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_api_rate_limited_total",
		Help: "Total number of API requests rejected by the per-IP rate limiter",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(TriggerRequests)
	prometheus.MustRegister(EscalationsStarted)
	prometheus.MustRegister(EscalationsFinished)
	prometheus.MustRegister(EscalationActive)
	prometheus.MustRegister(Resolutions)
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(MessagesFailed)
	prometheus.MustRegister(MembersSkipped)
	prometheus.MustRegister(ComposeFallbacks)
	prometheus.MustRegister(SlackSendSuccess)
	prometheus.MustRegister(SlackSendFailure)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(AuditEventsEmitted)
	prometheus.MustRegister(AuditEventsDropped)
	prometheus.MustRegister(AuditSinkErrors)
	prometheus.MustRegister(APIEndpointRequests)
	prometheus.MustRegister(APIEndpointErrors)
	prometheus.MustRegister(APIRateLimited)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
