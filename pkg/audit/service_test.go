// SPDX-FileCopyrightText: 2025 Moative
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/metrics"
)

type memorySink struct {
	mu     sync.Mutex
	name   string
	events []*Event
	err    error
	closed bool
}

func (s *memorySink) Write(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestService_DispatchesToAllSinks(t *testing.T) {
	a := &memorySink{name: "a"}
	b := &memorySink{name: "b"}
	svc := NewService(zaptest.NewLogger(t).Sugar(), 10, a, b)
	svc.Start()

	svc.Emit(NewEvent(EventEscalationStarted, "r1"))
	svc.Emit(NewEvent(EventMessageSent, "r1"))
	svc.Emit(nil)

	require.Eventually(t, func() bool { return a.count() == 2 && b.count() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop(context.Background()))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestService_StopFlushesQueue(t *testing.T) {
	sink := &memorySink{name: "flush"}
	svc := NewService(zaptest.NewLogger(t).Sugar(), 10, sink)
	// Not started: events stay queued until Stop drains them.
	for i := 0; i < 3; i++ {
		svc.Emit(NewEvent(EventMessageSent, "r"))
	}
	svc.Start()
	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, 3, sink.count())
}

func TestService_DropsWhenFullOrStopped(t *testing.T) {
	sink := &memorySink{name: "drop"}
	svc := NewService(zaptest.NewLogger(t).Sugar(), 1, sink)

	before := testutil.ToFloat64(metrics.AuditEventsDropped)
	svc.Emit(NewEvent(EventMessageSent, "r"))
	svc.Emit(NewEvent(EventMessageSent, "r"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditEventsDropped))

	svc.Start()
	require.NoError(t, svc.Stop(context.Background()))
	svc.Emit(NewEvent(EventMessageSent, "r"))
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.AuditEventsDropped))
	require.NoError(t, svc.Stop(context.Background()))
}

func TestService_SinkErrorIsCounted(t *testing.T) {
	sink := &memorySink{name: "broken-sink", err: errors.New("nope")}
	svc := NewService(zaptest.NewLogger(t).Sugar(), 10, sink)
	svc.Start()

	before := testutil.ToFloat64(metrics.AuditSinkErrors.WithLabelValues("broken-sink"))
	svc.Emit(NewEvent(EventMessageFailed, "r"))
	require.NoError(t, svc.Stop(context.Background()))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditSinkErrors.WithLabelValues("broken-sink")))
}

func TestNewEvent_Severity(t *testing.T) {
	assert.Equal(t, SeverityWarning, NewEvent(EventMessageFailed, "r").Severity)
	assert.Equal(t, SeverityInfo, NewEvent(EventEscalationResolved, "r").Severity)

	ev := NewEvent(EventEscalationResolved, "r").WithDetail("resolvedBy", "alice")
	assert.Equal(t, "alice", ev.Details["resolvedBy"])
	assert.NotEmpty(t, ev.ID)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	r.Emit(NewEvent(EventMessageSent, "r"))
}
