// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package overlap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Section names a group of weighted attributes.
type Section string

const (
	SectionOpportunity Section = "opportunity"
	SectionPartner     Section = "partner"
)

// Sections lists the scoring sections in evaluation order.
var Sections = []Section{SectionOpportunity, SectionPartner}

// Attribute names as stored in the weight table.
const (
	AttrOpportunitySize      = "opportunity_size"
	AttrRelationshipStatus   = "relationship_status"
	AttrEngagementScore      = "engagement_score"
	AttrOpportunityStage     = "opportunity_stage"
	AttrWinnability          = "winnability"
	AttrOpportunityRelevance = "opportunity_relevance"
	AttrRelationshipStrength = "relationship_strength"
	AttrRecentDealSupport    = "recent_deal_support"
	AttrStickiness           = "stickiness"
)

// SectionAttributes maps each section to its attribute names.
var SectionAttributes = map[Section][]string{
	SectionOpportunity: {AttrOpportunitySize, AttrRelationshipStatus, AttrEngagementScore, AttrOpportunityStage, AttrWinnability},
	SectionPartner:     {AttrOpportunityRelevance, AttrRelationshipStrength, AttrRecentDealSupport, AttrStickiness},
}

// IsKnownAttribute reports whether name is an attribute of section.
func IsKnownAttribute(section Section, name string) bool {
	return slices.Contains(SectionAttributes[section], name)
}

// Ordinal is a 0..5 attribute value. It decodes from JSON numbers, numeric
// strings, or the labels the sales team uses in the source data.
type Ordinal float64

var ordinalLabels = map[string]Ordinal{
	"LOW":           1,
	"SMALL":         1,
	"NEW":           1,
	"EARLY":         1,
	"COLD":          1,
	"POOR":          1,
	"MEDIUM":        3,
	"PAST":          3,
	"NEUTRAL":       3,
	"TRANSACTIONAL": 3,
	"ADEQUATE":      3,
	"LARGE":         4,
	"HIGH":          5,
	"VERY LARGE":    5,
	"VERY_LARGE":    5,
	"EXISTING":      5,
	"LATE":          5,
	"STRATEGIC":     5,
	"GOOD":          5,
}

// ParseOrdinal parses a number or a known label. Empty input yields 0.
func ParseOrdinal(s string) (Ordinal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Ordinal(f), nil
	}
	if v, ok := ordinalLabels[strings.ToUpper(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown ordinal value %q", s)
}

func (o *Ordinal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*o = Ordinal(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ordinal must be a number or a label: %w", err)
	}
	v, err := ParseOrdinal(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// OpportunityAttributes describe the prospect side of an overlap.
type OpportunityAttributes struct {
	Size               Ordinal `json:"opportunity_size" yaml:"opportunity_size"`
	RelationshipStatus Ordinal `json:"relationship_status" yaml:"relationship_status"`
	Engagement         Ordinal `json:"engagement_score" yaml:"engagement_score"`
	Stage              Ordinal `json:"opportunity_stage" yaml:"opportunity_stage"`
	Winnability        Ordinal `json:"winnability" yaml:"winnability"`
}

// Values returns the attributes keyed by weight name.
func (a *OpportunityAttributes) Values() map[string]float64 {
	if a == nil {
		return nil
	}
	return map[string]float64{
		AttrOpportunitySize:    float64(a.Size),
		AttrRelationshipStatus: float64(a.RelationshipStatus),
		AttrEngagementScore:    float64(a.Engagement),
		AttrOpportunityStage:   float64(a.Stage),
		AttrWinnability:        float64(a.Winnability),
	}
}

// PartnerAttributes describe the partner side of an overlap.
type PartnerAttributes struct {
	Relevance            Ordinal `json:"opportunity_relevance" yaml:"opportunity_relevance"`
	RelationshipStrength Ordinal `json:"relationship_strength" yaml:"relationship_strength"`
	RecentDealSupport    Ordinal `json:"recent_deal_support" yaml:"recent_deal_support"`
	Stickiness           Ordinal `json:"stickiness" yaml:"stickiness"`
}

// Values returns the attributes keyed by weight name.
func (a *PartnerAttributes) Values() map[string]float64 {
	if a == nil {
		return nil
	}
	return map[string]float64{
		AttrOpportunityRelevance: float64(a.Relevance),
		AttrRelationshipStrength: float64(a.RelationshipStrength),
		AttrRecentDealSupport:    float64(a.RecentDealSupport),
		AttrStickiness:           float64(a.Stickiness),
	}
}

// Record is a snapshot of one overlap as held by the record store.
type Record struct {
	ID               string                 `json:"id"`
	OpportunityName  string                 `json:"opportunity_name"`
	PartnerName      string                 `json:"partner_name"`
	PartnerSizeLabel string                 `json:"partner_size_label,omitempty"`
	AEName           string                 `json:"ae_name,omitempty"`
	Opportunity      *OpportunityAttributes `json:"opportunity,omitempty"`
	Partner          *PartnerAttributes     `json:"partner,omitempty"`
	LogoPotential    bool                   `json:"logo_potential"`
	PartnerChampion  bool                   `json:"partner_champion"`
}

// Name is the display name used for ranking ties.
func (r Record) Name() string {
	if r.OpportunityName == "" {
		return "Unknown"
	}
	return r.OpportunityName
}

// SectionValues returns the raw attribute values of a section, or nil if the
// record carries no data for it.
func (r Record) SectionValues(section Section) map[string]float64 {
	switch section {
	case SectionOpportunity:
		return r.Opportunity.Values()
	case SectionPartner:
		return r.Partner.Values()
	}
	return nil
}

// WeightSet holds attribute weights per section.
type WeightSet map[Section]map[string]float64

// Weight returns the weight of an attribute, 0 if unset.
func (w WeightSet) Weight(section Section, attr string) float64 {
	if w == nil {
		return 0
	}
	return w[section][attr]
}

// Clone returns a deep copy so a snapshot cannot be mutated by later updates.
func (w WeightSet) Clone() WeightSet {
	out := make(WeightSet, len(w))
	for s, m := range w {
		cp := make(map[string]float64, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[s] = cp
	}
	return out
}

// DefaultWeights spreads the weight of each section evenly over its
// attributes.
func DefaultWeights() WeightSet {
	ws := WeightSet{}
	for _, section := range Sections {
		attrs := SectionAttributes[section]
		m := make(map[string]float64, len(attrs))
		for _, a := range attrs {
			m[a] = 1 / float64(len(attrs))
		}
		ws[section] = m
	}
	return ws
}
