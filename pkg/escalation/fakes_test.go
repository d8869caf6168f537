// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

type fakeStore struct {
	mu      sync.Mutex
	records []overlap.Record
	weights overlap.WeightSet
	members []TeamMember
	listErr error
}

func (s *fakeStore) ListRecords(context.Context) ([]overlap.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]overlap.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStore) GetRecord(_ context.Context, id string) (*overlap.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) GetWeights(_ context.Context, section overlap.Section) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weights.Clone()[section], nil
}

func (s *fakeStore) Hierarchy(context.Context) ([]HierarchyLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GroupByTier(s.members), nil
}

// sent is one delivered notification as seen by recordingNotifier.
type sent struct {
	Member string
	Tier   int
	Index  int
	Text   string
}

func (s sent) label() string {
	return fmt.Sprintf("%s-%s", s.Member, MessageKind(s.Index))
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sent
	failOn map[string]bool
	// hook runs after a notification was recorded, outside the lock.
	hook func(n Notification)
}

func (r *recordingNotifier) Notify(_ context.Context, m TeamMember, n Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, sent{Member: m.Name, Tier: n.Tier, Index: n.Index, Text: n.Text})
	fail := r.failOn[m.Name]
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if fail {
		return errors.New("webhook returned 500")
	}
	return nil
}

func (r *recordingNotifier) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, s := range r.sent {
		out = append(out, s.label())
	}
	return out
}

func (r *recordingNotifier) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

type staticComposer struct {
	err error
}

func (c staticComposer) Compose(_ context.Context, req ComposeRequest) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("%s to %s (%s)", req.Record.Name(), req.Member.Name, req.Kind()), nil
}

func member(id int64, name string, tier, maxMessage int) TeamMember {
	return TeamMember{
		ID:         id,
		Name:       name,
		Hierarchy:  tier,
		ChannelID:  "C" + name,
		WebhookURL: "https://hooks.example.com/" + name,
		MaxMessage: maxMessage,
	}
}

func scoredRecord(id, name string, size float64) overlap.Record {
	return overlap.Record{
		ID:              id,
		OpportunityName: name,
		PartnerName:     "Partner " + name,
		Opportunity:     &overlap.OpportunityAttributes{Size: overlap.Ordinal(size)},
	}
}

func fullWeights() overlap.WeightSet {
	return overlap.WeightSet{
		overlap.SectionOpportunity: {overlap.AttrOpportunitySize: 1},
		overlap.SectionPartner:     {},
	}
}
