// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := overlap.Record{
		ID:              "rec-1",
		OpportunityName: "Acme",
		PartnerName:     "Initech",
		AEName:          "Dana",
		Opportunity:     &overlap.OpportunityAttributes{Size: 4, Engagement: 5},
		PartnerChampion: true,
	}
	require.NoError(t, s.UpsertRecord(ctx, rec))
	require.NoError(t, s.UpsertRecord(ctx, overlap.Record{ID: "rec-2", LogoPotential: true}))

	got, err := s.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.Nil(t, got.Partner, "absent sections stay absent")

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].LogoPotential)

	_, err = s.GetRecord(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(s.UpsertRecord(ctx, overlap.Record{OpportunityName: "no id"}), ErrInvalid))

	require.NoError(t, s.DeleteRecord(ctx, "rec-2"))
	assert.True(t, errors.Is(s.DeleteRecord(ctx, "rec-2"), ErrNotFound))
}

func TestDefaultWeightsSeeded(t *testing.T) {
	s := setupTestStore(t)
	w, err := s.GetWeights(context.Background(), overlap.SectionPartner)
	require.NoError(t, err)
	assert.Len(t, w, 4)
	assert.InDelta(t, 0.25, w[overlap.AttrStickiness], 1e-9)

	list, err := s.ListWeights(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 9)
}

func TestSetWeights(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetWeights(ctx, overlap.WeightSet{
		overlap.SectionOpportunity: {overlap.AttrOpportunitySize: 0.9},
	}))
	w, err := s.GetWeights(ctx, overlap.SectionOpportunity)
	require.NoError(t, err)
	assert.Equal(t, 0.9, w[overlap.AttrOpportunitySize])
	assert.InDelta(t, 0.2, w[overlap.AttrWinnability], 1e-9, "untouched weights are kept")

	err = s.SetWeights(ctx, overlap.WeightSet{overlap.SectionPartner: {"shoe_size": 0.1}})
	assert.ErrorContains(t, err, "unknown partner attribute")

	err = s.SetWeights(ctx, overlap.WeightSet{overlap.SectionPartner: {overlap.AttrStickiness: 1.5}})
	assert.ErrorContains(t, err, "within [0,1]")
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestTeamCRUDAndHierarchy(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	lead, err := s.AddMember(ctx, escalation.TeamMember{Name: "Lee", Designation: "Sales Lead", Hierarchy: 2, MaxMessage: 1, ChannelID: "C2", WebhookURL: "https://hooks/2"})
	require.NoError(t, err)
	rep, err := s.AddMember(ctx, escalation.TeamMember{Name: "Ria", Designation: "Account Executive", Hierarchy: 1, MaxMessage: 3, Email: "ria@example.com"})
	require.NoError(t, err)
	_, err = s.AddMember(ctx, escalation.TeamMember{Name: "VP", Hierarchy: 4, MaxMessage: 1})
	require.NoError(t, err)
	assert.NotZero(t, lead.ID)

	levels, err := s.Hierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Equal(t, "Ria", levels[0].Members[0].Name)
	assert.Empty(t, levels[2].Members)

	rep.MaxMessage = 2
	require.NoError(t, s.UpdateMember(ctx, rep))
	got, err := s.GetMember(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MaxMessage)
	assert.Equal(t, "ria@example.com", got.Email)

	require.NoError(t, s.DeleteMember(ctx, lead.ID))
	assert.True(t, errors.Is(s.DeleteMember(ctx, lead.ID), ErrNotFound))
	assert.True(t, errors.Is(s.UpdateMember(ctx, escalation.TeamMember{ID: 999, Name: "x", Hierarchy: 1}), ErrNotFound))

	_, err = s.AddMember(ctx, escalation.TeamMember{Name: "bad", Hierarchy: 0})
	assert.True(t, errors.Is(err, ErrInvalid))
	_, err = s.AddMember(ctx, escalation.TeamMember{Name: "bad", Hierarchy: 1, MaxMessage: -1})
	assert.Error(t, err)
}

func TestSeedFromFile(t *testing.T) {
	s := setupTestStore(t)
	path := filepath.Join(t.TempDir(), "records.json")
	data := `[
		{"id": "a", "opportunity_name": "Acme", "opportunity": {"opportunity_size": "LARGE", "engagement_score": "HIGH"}},
		{"id": "", "opportunity_name": "skipped"},
		{"id": "b", "opportunity_name": "Globex", "logo_potential": true, "partner": {"stickiness": 3}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	n, err := s.SeedFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, err := s.GetRecord(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, overlap.Ordinal(4), a.Opportunity.Size)
	assert.Equal(t, overlap.Ordinal(5), a.Opportunity.Engagement)

	_, err = DecodeRecords(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "overlap.db")
	s, err := Open(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	_, err = Open("", zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}
