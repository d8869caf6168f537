// SPDX-FileCopyrightText: 2025 Moative
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/metrics"
)

// Recorder accepts audit events. Implementations must not block the caller
// for longer than it takes to enqueue the event.
type Recorder interface {
	Emit(event *Event)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) Emit(*Event) {}

const (
	defaultQueueSize    = 1000
	defaultWriteTimeout = 5 * time.Second
)

// Service fans audit events out to its sinks from a background worker so
// escalation runs never wait on a slow sink.
type Service struct {
	sinks  []Sink
	queue  chan *Event
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewService creates an audit service. queueSize <= 0 selects the default.
func NewService(log *zap.SugaredLogger, queueSize int, sinks ...Sink) *Service {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Infow("Initializing audit service", "sinks", names, "queueSize", queueSize)
	return &Service{
		sinks:  sinks,
		queue:  make(chan *Event, queueSize),
		log:    log.Named("audit"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the background dispatch worker.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Emit enqueues an event; it is dropped when the queue is full or the
// service is stopped.
func (s *Service) Emit(event *Event) {
	if event == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.AuditEventsDropped.Inc()
		return
	}
	select {
	case s.queue <- event:
		metrics.AuditEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	default:
		metrics.AuditEventsDropped.Inc()
		s.log.Warnw("Audit queue is full, dropping event", "eventType", event.Type, "recordId", event.RecordID)
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.drain()
			return
		case event := <-s.queue:
			s.dispatch(event)
		}
	}
}

// drain flushes whatever is still queued at shutdown.
func (s *Service) drain() {
	for {
		select {
		case event := <-s.queue:
			s.dispatch(event)
		default:
			return
		}
	}
}

func (s *Service) dispatch(event *Event) {
	for _, sink := range s.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		if err := sink.Write(ctx, event); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(sink.Name()).Inc()
			s.log.Warnw("Audit sink write failed", "sink", sink.Name(), "eventId", event.ID, "error", err)
		}
		cancel()
	}
}

// Stop flushes queued events, closes the sinks and waits for the worker.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warnw("Audit service shutdown timeout, some events may not have been written")
		return ctx.Err()
	}

	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			s.log.Warnw("Failed to close audit sink", "sink", sink.Name(), "error", err)
		}
	}
	s.log.Info("Audit service stopped")
	return nil
}
