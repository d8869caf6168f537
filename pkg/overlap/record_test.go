// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownAttribute(t *testing.T) {
	assert.True(t, IsKnownAttribute(SectionOpportunity, AttrWinnability))
	assert.True(t, IsKnownAttribute(SectionPartner, AttrStickiness))
	assert.False(t, IsKnownAttribute(SectionPartner, AttrWinnability))
	assert.False(t, IsKnownAttribute(Section("sales"), AttrWinnability))
}

func TestDefaultWeightsSumToOnePerSection(t *testing.T) {
	ws := DefaultWeights()
	for _, section := range Sections {
		var sum float64
		for _, attr := range SectionAttributes[section] {
			sum += ws.Weight(section, attr)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, string(section))
	}
}

func TestWeightSetCloneIsDeep(t *testing.T) {
	ws := DefaultWeights()
	cp := ws.Clone()
	cp[SectionPartner][AttrStickiness] = 0.9
	assert.InDelta(t, 0.25, ws.Weight(SectionPartner, AttrStickiness), 1e-9)
}

func TestRecordName(t *testing.T) {
	assert.Equal(t, "Unknown", Record{}.Name())
	assert.Equal(t, "Acme", Record{OpportunityName: "Acme"}.Name())
}
