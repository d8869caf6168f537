// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

type harness struct {
	store    *fakeStore
	notifier *recordingNotifier
	ctrl     *Controller
	cancel   context.CancelFunc
}

func newHarness(t *testing.T, store *fakeStore, composer Composer, delay time.Duration) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	n := &recordingNotifier{}
	ctrl := NewController(ctx, zaptest.NewLogger(t).Sugar(), NewTracker(), overlap.NewEngine(), Dependencies{
		Records:  store,
		Weights:  store,
		Team:     store,
		Composer: composer,
		Notifier: n,
	}, Config{MessageDelay: delay})
	h := &harness{store: store, notifier: n, ctrl: ctrl, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		ctrl.Wait()
	})
	return h
}

func TestTriggerFourMessagesInOrder(t *testing.T) {
	store := &fakeStore{
		records: []overlap.Record{scoredRecord("r1", "Acme", 4)},
		weights: fullWeights(),
		members: []TeamMember{member(1, "X", 1, 3), member(2, "Y", 2, 1)},
	}
	h := newHarness(t, store, staticComposer{}, time.Millisecond)

	res := h.ctrl.Trigger(context.Background(), SourceAPI, "")
	require.Equal(t, OutcomeStarted, res.Outcome)
	assert.Equal(t, "r1", res.RecordID)

	h.ctrl.Wait()
	assert.Equal(t, []string{"X-main", "X-follow-up 2", "X-follow-up 3", "Y-main"}, h.notifier.labels())

	_, active := h.ctrl.Active()
	assert.False(t, active)
	st, _ := h.ctrl.State("r1")
	assert.True(t, st.Processed)
	assert.False(t, st.Resolved)

	// exhausted records are not escalated again
	assert.Equal(t, OutcomeNoCandidate, h.ctrl.Trigger(context.Background(), SourceAPI, "").Outcome)
}

func TestResolveAfterMainStopsRun(t *testing.T) {
	store := &fakeStore{
		records: []overlap.Record{scoredRecord("r1", "Acme", 4)},
		weights: fullWeights(),
		members: []TeamMember{member(1, "X", 1, 3), member(2, "Y", 2, 1)},
	}
	// a delay long enough that only the resolution can end the wait
	h := newHarness(t, store, staticComposer{}, time.Hour)
	h.notifier.hook = func(n Notification) {
		h.ctrl.Resolve(context.Background(), n.RecordID, "alice")
	}

	require.Equal(t, OutcomeStarted, h.ctrl.Trigger(context.Background(), SourceAPI, "").Outcome)

	done := make(chan struct{})
	go func() {
		h.ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after resolution")
	}

	assert.Equal(t, []string{"X-main"}, h.notifier.labels())
	st, _ := h.ctrl.State("r1")
	assert.True(t, st.Resolved)
	assert.Equal(t, "alice", st.ResolvedBy)
	_, active := h.ctrl.Active()
	assert.False(t, active)
}

func TestConcurrentTriggersStartExactlyOneRun(t *testing.T) {
	store := &fakeStore{
		records: []overlap.Record{scoredRecord("r1", "Acme", 4), scoredRecord("r2", "Zenith", 3)},
		weights: fullWeights(),
		members: []TeamMember{member(1, "X", 1, 1)},
	}
	h := newHarness(t, store, staticComposer{}, time.Hour)

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan TriggerResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.ctrl.Trigger(context.Background(), SourceAPI, "")
		}()
	}
	wg.Wait()
	close(results)

	started := 0
	for r := range results {
		switch r.Outcome {
		case OutcomeStarted:
			started++
			assert.Equal(t, "r1", r.RecordID)
		default:
			assert.Equal(t, OutcomeBusy, r.Outcome)
		}
	}
	assert.Equal(t, 1, started)

	id, active := h.ctrl.Active()
	require.True(t, active)
	assert.Equal(t, "r1", id)
	r2, _ := h.ctrl.State("r2")
	assert.False(t, r2.Processed)
}

func TestTriggerSelection(t *testing.T) {
	logo := scoredRecord("b", "B", 2)
	logo.LogoPotential = true

	tests := []struct {
		name      string
		records   []overlap.Record
		excludeID string
		resolved  []string
		want      ClaimOutcome
		wantID    string
	}{
		{
			name:    "logo potential beats higher score",
			records: []overlap.Record{scoredRecord("a", "A", 4.2), logo},
			want:    OutcomeStarted,
			wantID:  "b",
		},
		{
			name:    "equal scores break ties by name descending",
			records: []overlap.Record{scoredRecord("1", "Acme", 3), scoredRecord("2", "Zenith", 3)},
			want:    OutcomeStarted,
			wantID:  "2",
		},
		{
			name:      "excluded record is skipped",
			records:   []overlap.Record{scoredRecord("a", "A", 4), scoredRecord("c", "C", 2)},
			excludeID: "a",
			want:      OutcomeStarted,
			wantID:    "c",
		},
		{
			name:     "resolved records are never selected",
			records:  []overlap.Record{scoredRecord("a", "A", 4)},
			resolved: []string{"a"},
			want:     OutcomeNoCandidate,
		},
		{
			name:    "records below the qualifying score are ignored",
			records: []overlap.Record{scoredRecord("a", "A", 0.5)},
			want:    OutcomeNoCandidate,
		},
		{
			name:    "records without id are ignored",
			records: []overlap.Record{scoredRecord("", "NoID", 5)},
			want:    OutcomeNoCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{records: tt.records, weights: fullWeights(), members: []TeamMember{member(1, "X", 1, 1)}}
			h := newHarness(t, store, staticComposer{}, 0)
			for _, id := range tt.resolved {
				h.ctrl.Resolve(context.Background(), id, "test")
			}
			res := h.ctrl.Trigger(context.Background(), SourceAPI, tt.excludeID)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.wantID, res.RecordID)
			h.ctrl.Wait()
		})
	}
}

func TestTriggerStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("database is locked"), weights: fullWeights()}
	h := newHarness(t, store, staticComposer{}, 0)

	res := h.ctrl.Trigger(context.Background(), SourceStartup, "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Error, "database is locked")
	_, active := h.ctrl.Active()
	assert.False(t, active)
}

func TestShutdownCancelsRun(t *testing.T) {
	store := &fakeStore{
		records: []overlap.Record{scoredRecord("r1", "Acme", 4)},
		weights: fullWeights(),
		members: []TeamMember{member(1, "X", 1, 5)},
	}
	h := newHarness(t, store, staticComposer{}, time.Hour)
	require.Equal(t, OutcomeStarted, h.ctrl.Trigger(context.Background(), SourceAPI, "").Outcome)

	require.Eventually(t, func() bool { return len(h.notifier.labels()) == 1 }, time.Second, 5*time.Millisecond)
	h.cancel()
	h.ctrl.Wait()

	assert.Len(t, h.notifier.labels(), 1)
	_, active := h.ctrl.Active()
	assert.False(t, active)
	st, _ := h.ctrl.State("r1")
	assert.False(t, st.Resolved)
}

func TestNextRunWaitsForResolvedRunToReturn(t *testing.T) {
	store := &fakeStore{
		records: []overlap.Record{scoredRecord("a", "Acme", 4), scoredRecord("b", "Zenith", 3)},
		weights: fullWeights(),
		members: []TeamMember{member(1, "X", 1, 1)},
	}

	var inFlight, maxInFlight, calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	notifier := NotifierFunc(func(context.Context, TeamMember, Notification) error {
		cur := inFlight.Add(1)
		for {
			old := maxInFlight.Load()
			if cur <= old || maxInFlight.CompareAndSwap(old, cur) {
				break
			}
		}
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
		}
		inFlight.Add(-1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewController(ctx, zaptest.NewLogger(t).Sugar(), NewTracker(), overlap.NewEngine(), Dependencies{
		Records:  store,
		Weights:  store,
		Team:     store,
		Composer: staticComposer{},
		Notifier: notifier,
	}, Config{MessageDelay: time.Hour})
	t.Cleanup(func() {
		cancel()
		ctrl.Wait()
	})

	require.Equal(t, OutcomeStarted, ctrl.Trigger(context.Background(), SourceAPI, "").Outcome)
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never delivered")
	}

	// a is still inside Notify when it is resolved and b is admitted
	require.True(t, ctrl.Resolve(context.Background(), "a", "alice").WasActive)
	res := ctrl.Trigger(context.Background(), SourceResolve, "a")
	require.Equal(t, OutcomeStarted, res.Outcome)
	assert.Equal(t, "b", res.RecordID)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "b delivered while a was still sending")

	close(release)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxInFlight.Load())
}
