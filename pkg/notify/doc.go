// Package notify delivers escalation messages to team members over Slack
// incoming webhooks or mail.
package notify
