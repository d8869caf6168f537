// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package overlap

import "math"

// PriorityLevel describes how a priority score was obtained.
type PriorityLevel string

const (
	PriorityLogoPotential PriorityLevel = "LOGO_POTENTIAL"
	PriorityScored        PriorityLevel = "SCORED"
)

const (
	// MaxScore is the upper bound of every priority score.
	MaxScore = 5.0
	// QualifyingScore is the minimum score for a non-logo record to be escalated.
	QualifyingScore = 1.0
)

// PriorityContext is the derived scoring result for one record. It is
// recomputed on every scoring pass and handed to message composition.
type PriorityContext struct {
	PriorityScore    float64            `json:"priority_score"`
	PriorityLevel    PriorityLevel      `json:"priority_level"`
	LogoPotential    bool               `json:"logo_potential"`
	HasChampion      bool               `json:"has_champion"`
	OpportunityScore *float64           `json:"opportunity_score,omitempty"`
	PartnerScore     *float64           `json:"partner_score,omitempty"`
	Opportunity      map[string]float64 `json:"opportunity,omitempty"`
	Partner          map[string]float64 `json:"partner,omitempty"`
}

// Qualifies reports whether the record may be escalated at all.
func (p PriorityContext) Qualifies() bool {
	return p.LogoPotential || p.PriorityScore >= QualifyingScore
}

// Engine computes priority scores from records and weights.
type Engine struct{}

// NewEngine creates a scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the priority context of rec under weights.
func (e *Engine) Score(rec Record, weights WeightSet) PriorityContext {
	pc := PriorityContext{
		LogoPotential: rec.LogoPotential,
		HasChampion:   rec.PartnerChampion,
		Opportunity:   rec.SectionValues(SectionOpportunity),
		Partner:       rec.SectionValues(SectionPartner),
	}

	opp, oppOK := e.SectionScore(rec, SectionOpportunity, weights)
	part, partOK := e.SectionScore(rec, SectionPartner, weights)
	if oppOK {
		pc.OpportunityScore = &opp
	}
	if partOK {
		pc.PartnerScore = &part
	}

	if rec.LogoPotential {
		pc.PriorityScore = MaxScore
		pc.PriorityLevel = PriorityLogoPotential
		return pc
	}

	var score float64
	switch {
	case oppOK && partOK:
		score = (opp + part) / 2
	case oppOK:
		score = opp
	case partOK:
		score = part
	}
	pc.PriorityScore = clamp(score, 0, MaxScore)
	pc.PriorityLevel = PriorityScored
	return pc
}

// SectionScore returns the weighted sum of one section and whether the
// section is computable: present on the record with at least one positive
// weight or positive raw value.
func (e *Engine) SectionScore(rec Record, section Section, weights WeightSet) (float64, bool) {
	values := rec.SectionValues(section)
	if values == nil {
		return 0, false
	}
	var sum float64
	computable := false
	for _, attr := range SectionAttributes[section] {
		v := clamp(values[attr], 0, MaxScore)
		w := clamp(weights.Weight(section, attr), 0, 1)
		if v > 0 || w > 0 {
			computable = true
		}
		sum += v * w
	}
	return sum, computable
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
