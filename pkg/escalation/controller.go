// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/metrics"
	"github.com/moative/overlap-escalation/pkg/overlap"
)

// Trigger sources used in logs, metrics and audit events.
const (
	SourceStartup = "startup"
	SourceAPI     = "api"
	SourceResolve = "resolve"
	SourceTeam    = "team"
	SourceWeights = "weights"
	SourceRecords = "records"
)

// Config tunes the escalation controller.
type Config struct {
	// MessageDelay is the gap after every sent message.
	MessageDelay time.Duration
}

// Dependencies are the collaborators of a Controller. Fallback and Recorder
// are optional.
type Dependencies struct {
	Records  RecordStore
	Weights  WeightStore
	Team     TeamDirectory
	Composer Composer
	Fallback Composer
	Notifier Notifier
	Recorder audit.Recorder
}

// TriggerResult describes what a trigger did.
type TriggerResult struct {
	Outcome       ClaimOutcome          `json:"outcome"`
	RecordID      string                `json:"record_id,omitempty"`
	PriorityScore float64               `json:"priority_score,omitempty"`
	PriorityLevel overlap.PriorityLevel `json:"priority_level,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// Controller admits at most one escalation run at a time and owns the run
// goroutine.
type Controller struct {
	log      *zap.SugaredLogger
	tracker  *Tracker
	engine   *overlap.Engine
	runner   *Runner
	deps     Dependencies
	recorder audit.Recorder

	// baseCtx bounds every run; cancelling it stops runs at the next
	// message boundary.
	baseCtx context.Context
	wg      sync.WaitGroup
	// runMu is held by a run goroutine for its whole walk. A resolution
	// frees the slot before the old walk returns, so the next run queues
	// here instead of delivering alongside it.
	runMu sync.Mutex
}

// NewController creates a controller whose runs live at most as long as ctx.
func NewController(ctx context.Context, log *zap.SugaredLogger, tracker *Tracker, engine *overlap.Engine, deps Dependencies, cfg Config) *Controller {
	if deps.Recorder == nil {
		deps.Recorder = audit.NopRecorder{}
	}
	log = log.Named("escalation")
	return &Controller{
		log:      log,
		tracker:  tracker,
		engine:   engine,
		runner:   NewRunner(log, tracker, deps.Composer, deps.Fallback, deps.Notifier, deps.Recorder, cfg.MessageDelay),
		deps:     deps,
		recorder: deps.Recorder,
		baseCtx:  ctx,
	}
}

// Tracker exposes the resolution tracker for status queries.
func (c *Controller) Tracker() *Tracker {
	return c.tracker
}

// Active returns the record currently escalating, if any.
func (c *Controller) Active() (string, bool) {
	return c.tracker.Active()
}

// State returns the escalation state of a record.
func (c *Controller) State(id string) (State, bool) {
	return c.tracker.State(id)
}

// States returns the state of every record the tracker has seen, sorted by id.
func (c *Controller) States() []State {
	return c.tracker.States()
}

// Weights reads a fresh weight snapshot of both sections.
func (c *Controller) Weights(ctx context.Context) (overlap.WeightSet, error) {
	ws := overlap.WeightSet{}
	for _, section := range overlap.Sections {
		w, err := c.deps.Weights.GetWeights(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s weights: %w", section, err)
		}
		ws[section] = w
	}
	return ws, nil
}

// Candidates scores all records with a fresh weight snapshot and returns
// them ranked.
func (c *Controller) Candidates(ctx context.Context) ([]overlap.Candidate, error) {
	records, err := c.deps.Records.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	weights, err := c.Weights(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == "" {
			c.log.Warnw("Record without id is excluded from selection", "opportunity", rec.OpportunityName, "partner", rec.PartnerName)
		}
	}
	return overlap.Rank(c.engine.ScoreAll(records, weights)), nil
}

// Trigger tries to start an escalation for the best eligible record other
// than excludeID. It never waits for the run. Concurrent callers are safe;
// at most one of them starts a run.
func (c *Controller) Trigger(ctx context.Context, source, excludeID string) TriggerResult {
	res := c.trigger(ctx, excludeID)
	metrics.TriggerRequests.WithLabelValues(source, string(res.Outcome)).Inc()

	switch res.Outcome {
	case OutcomeStarted:
		c.log.Infow("Escalation started", "source", source, "recordId", res.RecordID,
			"priorityScore", res.PriorityScore, "priorityLevel", res.PriorityLevel)
	case OutcomeBusy:
		active, _ := c.tracker.Active()
		c.log.Debugw("Escalation already active, trigger ignored", "source", source, "activeRecordId", active)
	case OutcomeNoCandidate:
		c.log.Infow("No eligible record to escalate", "source", source, "excludeId", excludeID)
	case OutcomeFailed:
		c.log.Errorw("Escalation trigger failed", "source", source, "error", res.Error)
	}

	ev := audit.NewEvent(audit.EventEscalationTriggered, res.RecordID).
		WithDetail("outcome", string(res.Outcome))
	ev.Actor = source
	if excludeID != "" {
		ev.WithDetail("excludeId", excludeID)
	}
	c.recorder.Emit(ev)
	return res
}

func (c *Controller) trigger(ctx context.Context, excludeID string) TriggerResult {
	if _, busy := c.tracker.Active(); busy {
		return TriggerResult{Outcome: OutcomeBusy}
	}

	candidates, err := c.Candidates(ctx)
	if err != nil {
		return TriggerResult{Outcome: OutcomeFailed, Error: err.Error()}
	}
	levels, err := c.deps.Team.Hierarchy(ctx)
	if err != nil {
		return TriggerResult{Outcome: OutcomeFailed, Error: fmt.Sprintf("failed to load team hierarchy: %v", err)}
	}

	var chosen overlap.Candidate
	claim, outcome := c.tracker.Claim(c.baseCtx, func(eligible overlap.Eligibility) (string, bool) {
		best, ok := overlap.SelectBest(candidates, eligible, excludeID)
		chosen = best
		return best.Record.ID, ok
	})
	if outcome != OutcomeStarted {
		return TriggerResult{Outcome: outcome}
	}

	job := Job{Candidate: chosen, Levels: levels, Designations: Designations(levels)}
	c.start(claim, job)
	return TriggerResult{
		Outcome:       OutcomeStarted,
		RecordID:      claim.RecordID,
		PriorityScore: chosen.Context.PriorityScore,
		PriorityLevel: chosen.Context.PriorityLevel,
	}
}

func (c *Controller) start(claim Claim, job Job) {
	metrics.EscalationsStarted.Inc()
	metrics.EscalationActive.Set(1)

	ev := audit.NewEvent(audit.EventEscalationStarted, claim.RecordID).
		WithDetail("priorityScore", job.Candidate.Context.PriorityScore).
		WithDetail("priorityLevel", string(job.Candidate.Context.PriorityLevel))
	ev.Actor = "runner"
	c.recorder.Emit(ev)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runMu.Lock()
		defer c.runMu.Unlock()
		outcome := c.runner.Run(claim.Ctx, c.baseCtx, job)
		c.finished(claim.RecordID, outcome)
	}()
}

func (c *Controller) finished(id string, outcome RunOutcome) {
	metrics.EscalationsFinished.WithLabelValues(string(outcome)).Inc()
	if _, busy := c.tracker.Active(); !busy {
		metrics.EscalationActive.Set(0)
	}

	var t audit.EventType
	switch outcome {
	case RunResolved:
		// The resolution itself was audited by Resolve.
		return
	case RunExhausted:
		t = audit.EventEscalationExhausted
	default:
		t = audit.EventEscalationCancelled
	}
	ev := audit.NewEvent(t, id)
	ev.Actor = "runner"
	c.recorder.Emit(ev)
}

// Resolve marks id resolved and releases the active slot if id holds it.
// It is idempotent and does not trigger the next escalation; callers do.
func (c *Controller) Resolve(_ context.Context, id, resolvedBy string) ResolveResult {
	res := c.tracker.Resolve(id, resolvedBy)
	metrics.Resolutions.WithLabelValues(fmt.Sprintf("%t", res.WasActive)).Inc()
	if res.WasActive {
		if _, busy := c.tracker.Active(); !busy {
			metrics.EscalationActive.Set(0)
		}
	}

	c.log.Infow("Record resolved", "recordId", id, "resolvedBy", resolvedBy,
		"wasActive", res.WasActive, "alreadyResolved", res.AlreadyResolved)

	if !res.AlreadyResolved {
		ev := audit.NewEvent(audit.EventEscalationResolved, id).
			WithDetail("wasActive", res.WasActive)
		ev.Actor = resolvedBy
		c.recorder.Emit(ev)
	}
	return res
}

// Wait blocks until the current run goroutine, if any, has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}
