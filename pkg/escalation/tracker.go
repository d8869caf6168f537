// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

// State is the escalation bookkeeping of one record.
type State struct {
	RecordID    string    `json:"record_id"`
	Resolved    bool      `json:"resolved"`
	Processed   bool      `json:"processed"`
	ResolvedBy  string    `json:"resolved_by,omitempty"`
	ProcessedAt time.Time `json:"processed_at,omitzero"`
	ResolvedAt  time.Time `json:"resolved_at,omitzero"`
}

// ClaimOutcome is the result of an attempt to start an escalation.
type ClaimOutcome string

const (
	OutcomeStarted     ClaimOutcome = "started"
	OutcomeBusy        ClaimOutcome = "busy"
	OutcomeNoCandidate ClaimOutcome = "no_candidate"
	OutcomeFailed      ClaimOutcome = "failed"
)

// Claim describes a started escalation.
type Claim struct {
	RecordID string
	// Ctx is cancelled when the record is resolved, the run finishes, or
	// the tracker's parent context ends.
	Ctx context.Context
}

// ResolveResult tells the caller what a resolution changed.
type ResolveResult struct {
	WasActive       bool
	AlreadyResolved bool
}

// Tracker owns the resolved/processed flags of every record and the single
// active escalation slot. All reads that drive a decision and all writes go
// through its mutex.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*State
	active string
	cancel context.CancelFunc
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Active returns the record currently escalating, if any.
func (t *Tracker) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != ""
}

// State returns a copy of the state of id.
func (t *Tracker) State(id string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[id]
	if !ok {
		return State{RecordID: id}, false
	}
	return *s, true
}

// States returns copies of all known states ordered by record id.
func (t *Tracker) States() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]State, 0, len(t.states))
	for _, s := range t.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out
}

// IsResolved reports the resolved flag of id.
func (t *Tracker) IsResolved(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[id]
	return ok && s.Resolved
}

// eligible must be called with mu held.
func (t *Tracker) eligible(id string) bool {
	s, ok := t.states[id]
	return !ok || (!s.Resolved && !s.Processed)
}

// Claim runs choose under the lock. When no escalation is active and choose
// picks a record, the record is marked processed and unresolved, becomes the
// active escalation, and a run context derived from parent is returned.
func (t *Tracker) Claim(parent context.Context, choose func(eligible overlap.Eligibility) (string, bool)) (Claim, ClaimOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != "" {
		return Claim{}, OutcomeBusy
	}
	id, ok := choose(t.eligible)
	if !ok || id == "" {
		return Claim{}, OutcomeNoCandidate
	}

	s := t.stateLocked(id)
	s.Resolved = false
	s.Processed = true
	s.ProcessedAt = t.now()

	ctx, cancel := context.WithCancel(parent)
	t.active = id
	t.cancel = cancel
	return Claim{RecordID: id, Ctx: ctx}, OutcomeStarted
}

// ShouldStop is the runner's poll point. It returns true when id has been
// resolved, clearing the active slot if id still holds it.
func (t *Tracker) ShouldStop(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[id]
	if !ok || !s.Resolved {
		return false
	}
	t.releaseLocked(id)
	return true
}

// Finish clears the active slot if it still holds id.
func (t *Tracker) Finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked(id)
}

// Resolve marks id resolved. Unknown records get a resolved state. If id is
// the active escalation the slot is cleared and its run context cancelled.
func (t *Tracker) Resolve(id, resolvedBy string) ResolveResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stateLocked(id)
	res := ResolveResult{AlreadyResolved: s.Resolved}
	if !s.Resolved {
		s.Resolved = true
		s.ResolvedBy = resolvedBy
		s.ResolvedAt = t.now()
	}
	if t.active == id {
		res.WasActive = true
		t.releaseLocked(id)
	}
	return res
}

func (t *Tracker) stateLocked(id string) *State {
	s, ok := t.states[id]
	if !ok {
		s = &State{RecordID: id}
		t.states[id] = s
	}
	return s
}

func (t *Tracker) releaseLocked(id string) {
	if t.active != id {
		return
	}
	t.active = ""
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
