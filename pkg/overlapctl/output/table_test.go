package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestWriteRecordTable(t *testing.T) {
	buf := &bytes.Buffer{}
	WriteRecordTable(buf, []overlap.Record{
		{ID: "1", OpportunityName: "Acme", PartnerName: "Initech", LogoPotential: true},
		{ID: "2"},
	})
	out := lines(buf)
	require.Len(t, out, 3)
	assert.Contains(t, out[0], "OPPORTUNITY")
	assert.Contains(t, out[1], "Acme")
	assert.Contains(t, out[1], "yes")
	assert.Contains(t, out[2], "Unknown")
	assert.Contains(t, out[2], "-")
}

func TestWriteStateTable(t *testing.T) {
	noColor(t)
	buf := &bytes.Buffer{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	WriteStateTable(buf, []escalation.State{
		{RecordID: "a", Processed: true, ProcessedAt: now},
		{RecordID: "b", Resolved: true, ResolvedBy: "slack:jo", ResolvedAt: now},
		{RecordID: "c"},
	}, "a")
	out := lines(buf)
	require.Len(t, out, 4)
	assert.Contains(t, out[1], "ACTIVE")
	assert.Contains(t, out[1], "2026-01-02T03:04:05Z")
	assert.Contains(t, out[2], "RESOLVED")
	assert.Contains(t, out[2], "slack:jo")
	assert.Contains(t, out[3], "PENDING")
}

func TestWriteRankingTable(t *testing.T) {
	noColor(t)
	buf := &bytes.Buffer{}
	WriteRankingTable(buf, []api.RankedCandidate{
		{Rank: 1, RecordID: "a", Name: "A", Context: overlap.PriorityContext{PriorityScore: 4.5, LogoPotential: true, PriorityLevel: overlap.PriorityLogoPotential}, Eligible: true},
		{Rank: 2, RecordID: "b", Name: "B", Context: overlap.PriorityContext{PriorityScore: 0.5, PriorityLevel: overlap.PriorityScored}},
		{Rank: 3, RecordID: "c", Name: "C", Context: overlap.PriorityContext{PriorityScore: 2}, State: &escalation.State{RecordID: "c", Resolved: true}},
	})
	out := lines(buf)
	require.Len(t, out, 4)
	assert.Contains(t, out[1], "ELIGIBLE")
	assert.Contains(t, out[2], "BELOW_THRESHOLD")
	assert.Contains(t, out[3], "RESOLVED")
}

func TestWriteWeightTableSorted(t *testing.T) {
	buf := &bytes.Buffer{}
	WriteWeightTable(buf, []store.Weight{
		{Name: "stickiness", Section: overlap.SectionPartner, Weight: 0.25},
		{Name: "winnability", Section: overlap.SectionOpportunity, Weight: 0.2},
		{Name: "engagement_score", Section: overlap.SectionOpportunity, Weight: 0.2},
	})
	out := lines(buf)
	require.Len(t, out, 4)
	assert.Contains(t, out[1], "engagement_score")
	assert.Contains(t, out[2], "winnability")
	assert.Contains(t, out[3], "0.25")
}

func TestWriteHierarchyTable(t *testing.T) {
	buf := &bytes.Buffer{}
	WriteHierarchyTable(buf, api.HierarchyResponse{
		Levels: []escalation.HierarchyLevel{
			{Tier: 1, Members: []escalation.TeamMember{{Name: "Ann"}, {Name: "Bo"}}},
			{Tier: 2, Members: []escalation.TeamMember{{Name: "Cy"}}},
		},
		Designations: map[int]string{1: "AE"},
	})
	out := lines(buf)
	require.Len(t, out, 3)
	assert.Contains(t, out[1], "Ann, Bo")
	assert.Contains(t, out[1], "AE")
	assert.Contains(t, out[2], "-")
}

func TestWriteTrigger(t *testing.T) {
	noColor(t)
	tests := []struct {
		res  escalation.TriggerResult
		want string
	}{
		{escalation.TriggerResult{Outcome: escalation.OutcomeStarted, RecordID: "a", PriorityScore: 3}, "started escalation for a"},
		{escalation.TriggerResult{Outcome: escalation.OutcomeBusy, RecordID: "b"}, "busy: escalation for b"},
		{escalation.TriggerResult{Outcome: escalation.OutcomeNoCandidate}, "no eligible record"},
		{escalation.TriggerResult{Outcome: escalation.OutcomeFailed, Error: "db down"}, "trigger failed: db down"},
	}
	for _, tt := range tests {
		t.Run(string(tt.res.Outcome), func(t *testing.T) {
			buf := &bytes.Buffer{}
			WriteTrigger(buf, tt.res)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
