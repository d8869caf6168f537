// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package overlap

import "sort"

// Candidate is a scored record considered for escalation.
type Candidate struct {
	Record  Record          `json:"record"`
	Context PriorityContext `json:"context"`
}

// Eligibility reports whether a record id may still be selected. It is
// backed by the escalation state and must be evaluated under its lock.
type Eligibility func(id string) bool

// ScoreAll scores every record with a single weight snapshot.
func (e *Engine) ScoreAll(records []Record, weights WeightSet) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		out = append(out, Candidate{Record: rec, Context: e.Score(rec, weights)})
	}
	return out
}

// Rank orders candidates by (logoPotential, priorityScore, name), all
// descending. The input slice is not modified.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranksAbove(ranked[i], ranked[j])
	})
	return ranked
}

func ranksAbove(a, b Candidate) bool {
	if a.Record.LogoPotential != b.Record.LogoPotential {
		return a.Record.LogoPotential
	}
	if a.Context.PriorityScore != b.Context.PriorityScore {
		return a.Context.PriorityScore > b.Context.PriorityScore
	}
	return a.Record.Name() > b.Record.Name()
}

// SelectBest returns the top ranked candidate that qualifies, has an id,
// is not excludeID and passes eligible. It has no side effects.
func SelectBest(candidates []Candidate, eligible Eligibility, excludeID string) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		id := c.Record.ID
		if id == "" || id == excludeID || !c.Context.Qualifies() {
			continue
		}
		if eligible != nil && !eligible(id) {
			continue
		}
		if !found || ranksAbove(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}
