// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/metrics"
	"github.com/moative/overlap-escalation/pkg/overlap"
)

// RunOutcome is how an escalation run ended.
type RunOutcome string

const (
	RunResolved  RunOutcome = "resolved"
	RunExhausted RunOutcome = "exhausted"
	RunCancelled RunOutcome = "cancelled"
)

// Job is the snapshot an escalation run works from. It is fixed at
// selection time.
type Job struct {
	Candidate    overlap.Candidate
	Levels       []HierarchyLevel
	Designations map[int]string
}

// RecordID of the escalated record.
func (j Job) RecordID() string {
	return j.Candidate.Record.ID
}

// Runner walks the hierarchy for one record, one message at a time.
type Runner struct {
	log      *zap.SugaredLogger
	tracker  *Tracker
	composer Composer
	fallback Composer
	notifier Notifier
	recorder audit.Recorder
	delay    time.Duration
}

// NewRunner creates a runner. fallback may be nil, in which case
// FallbackMessage is used when the composer fails.
func NewRunner(log *zap.SugaredLogger, tracker *Tracker, composer, fallback Composer, notifier Notifier, recorder audit.Recorder, delay time.Duration) *Runner {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Runner{
		log:      log.Named("runner"),
		tracker:  tracker,
		composer: composer,
		fallback: fallback,
		notifier: notifier,
		recorder: recorder,
		delay:    delay,
	}
}

// Run sends the messages of job until the hierarchy is exhausted, the record
// is resolved, or deliveryCtx ends. runCtx only interrupts the wait between
// messages; deliveryCtx is handed to the composer and notifier so that a
// resolution never aborts a message already in flight.
func (r *Runner) Run(runCtx, deliveryCtx context.Context, job Job) RunOutcome {
	id := job.RecordID()
	log := r.log.With("recordId", id)
	r.logPlan(log, job)

	for _, level := range job.Levels {
		if len(level.Members) == 0 {
			log.Warnw("No members configured for hierarchy tier, skipping", "tier", level.Tier)
			continue
		}
		for _, member := range level.Members {
			if member.MaxMessage < 1 {
				r.skip(log, job, level.Tier, member, "max_message")
				continue
			}
			if !member.Reachable() {
				r.skip(log, job, level.Tier, member, "unreachable")
				continue
			}
			for index := 1; index <= member.MaxMessage; index++ {
				if r.tracker.ShouldStop(id) {
					log.Infow("Record resolved, stopping escalation", "tier", level.Tier, "member", member.Name, "nextMessage", index)
					return RunResolved
				}
				if deliveryCtx.Err() != nil {
					r.tracker.Finish(id)
					log.Infow("Escalation cancelled", "reason", deliveryCtx.Err())
					return RunCancelled
				}
				r.send(deliveryCtx, log, job, level.Tier, member, index)
				r.wait(runCtx)
			}
		}
	}

	// A resolution that landed during the last wait still counts as resolved.
	if r.tracker.ShouldStop(id) {
		return RunResolved
	}
	r.tracker.Finish(id)
	log.Infow("Escalation hierarchy exhausted without resolution")
	return RunExhausted
}

func (r *Runner) logPlan(log *zap.SugaredLogger, job Job) {
	total := 0
	plan := make([]string, 0)
	for _, level := range job.Levels {
		for _, m := range level.Members {
			n := m.MaxMessage
			if n < 0 || !m.Reachable() {
				n = 0
			}
			total += n
			plan = append(plan, fmt.Sprintf("tier %d: %s x%d", level.Tier, m.Name, n))
		}
	}
	log.Infow("Escalation message plan",
		"record", job.Candidate.Record.Name(),
		"priorityScore", job.Candidate.Context.PriorityScore,
		"priorityLevel", job.Candidate.Context.PriorityLevel,
		"plan", plan,
		"totalMessages", total,
		"delay", r.delay.String())
}

func (r *Runner) skip(log *zap.SugaredLogger, job Job, tier int, member TeamMember, reason string) {
	log.Warnw("Skipping team member", "tier", tier, "member", member.Name, "reason", reason, "maxMessage", member.MaxMessage)
	metrics.MembersSkipped.WithLabelValues(reason).Inc()
	ev := audit.NewEvent(audit.EventMessageSkipped, job.RecordID()).WithDetail("reason", reason)
	ev.Tier = tier
	ev.Member = member.Name
	ev.Actor = "runner"
	r.recorder.Emit(ev)
}

func (r *Runner) send(ctx context.Context, log *zap.SugaredLogger, job Job, tier int, member TeamMember, index int) {
	req := ComposeRequest{
		Record:       job.Candidate.Record,
		Context:      job.Candidate.Context,
		Member:       member,
		Tier:         tier,
		Index:        index,
		Designations: job.Designations,
	}
	text := r.compose(ctx, log, req)

	tierLabel := strconv.Itoa(tier)
	ev := audit.NewEvent(audit.EventMessageSent, job.RecordID())
	ev.Tier = tier
	ev.Member = member.Name
	ev.MessageIndex = index
	ev.Actor = "runner"

	err := r.notifier.Notify(ctx, member, Notification{RecordID: job.RecordID(), Tier: tier, Index: index, Text: text})
	if err != nil {
		log.Warnw("Failed to deliver escalation message", "tier", tier, "member", member.Name, "message", req.Kind(), "error", err)
		metrics.MessagesFailed.WithLabelValues(tierLabel).Inc()
		ev.Type = audit.EventMessageFailed
		ev.Severity = audit.SeverityWarning
		ev.WithDetail("error", err.Error())
		r.recorder.Emit(ev)
		return
	}
	log.Infow("Escalation message sent", "tier", tier, "member", member.Name, "message", req.Kind())
	metrics.MessagesSent.WithLabelValues(tierLabel).Inc()
	r.recorder.Emit(ev)
}

// compose never fails: composer, then fallback, then FallbackMessage.
func (r *Runner) compose(ctx context.Context, log *zap.SugaredLogger, req ComposeRequest) string {
	if r.composer != nil {
		text, err := r.composer.Compose(ctx, req)
		if err == nil && text != "" {
			return text
		}
		log.Warnw("Message composer failed, using fallback", "tier", req.Tier, "message", req.Kind(), "error", err)
		metrics.ComposeFallbacks.WithLabelValues("primary").Inc()
	}
	if r.fallback != nil {
		text, err := r.fallback.Compose(ctx, req)
		if err == nil && text != "" {
			return text
		}
		log.Warnw("Fallback composer failed", "error", err)
		metrics.ComposeFallbacks.WithLabelValues("fallback").Inc()
	}
	return FallbackMessage(req)
}

// FallbackMessage is the last-resort text of a message.
func FallbackMessage(req ComposeRequest) string {
	return fmt.Sprintf("ACCOUNT: %s | PARTNER: %s | Hierarchy %d | %s",
		req.Record.OpportunityName, req.Record.PartnerName, req.Tier, titleKind(req.Kind()))
}

func titleKind(kind string) string {
	if kind == "" {
		return kind
	}
	return string(kind[0]-'a'+'A') + kind[1:]
}

// wait sleeps for the configured delay or until ctx ends.
func (r *Runner) wait(ctx context.Context) {
	if r.delay <= 0 {
		return
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
