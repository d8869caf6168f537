// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/moative/overlap-escalation/pkg/escalation"
)

// DefaultTemplates are the built-in message templates keyed by variant.
var DefaultTemplates = map[PromptVariant]string{
	VariantLogoPotential: `{{ .Member.Name | default "Team" }}, {{ .Record.OpportunityName }} is a ground-breaking account for us and {{ .Record.PartnerName }} is already in it.
This one has exceptional strategic value, so let's move on it now{{ if .AE }} together with {{ .AE }}{{ end }}.`,
	VariantMainTier1: `{{ .Record.OpportunityName }} looks like a strong opening with {{ .Record.PartnerName }}.
{{ .Strength }}
{{ .Record.PartnerName }} can help us get further with this account{{ if .Context.HasChampion }}, and they have a champion pushing the deal{{ end }}. Worth reaching out this week.`,
	VariantMainTier2: `{{ .Record.OpportunityName }} has a live overlap with {{ .Record.PartnerName }}.
{{ .Strength }}
Please connect with {{ .AE | default "the Account Executive" }}{{ with .Designation 1 }} ({{ . }}){{ end }} to plan the next steps with the partner.`,
	VariantMainExecutive: `The overlap with {{ .Record.PartnerName }} at {{ .Record.OpportunityName }} went through the usual channels but has not picked up traction.
{{ .Strength }}
Some visibility from your side could get it moving.`,
	VariantFollowUpTier1:    `Quick nudge on {{ .Record.OpportunityName }} (follow-up {{ .Index }}): have you had a chance to reach out to {{ .Record.PartnerName }}? A short mail to them would get things rolling.`,
	VariantFollowUpEscalate: `Following up on {{ .Record.OpportunityName }} with {{ .Record.PartnerName }}: could you check in with {{ .AE | default "the Account Executive" }}{{ with .Designation 1 }} ({{ . }}){{ end }} on where this stands?`,
}

// TemplateData is what message templates see.
type TemplateData struct {
	escalation.ComposeRequest
	Kind     string
	AE       string
	Stars    string
	Strength string
}

// Designation returns the designation configured for tier, if any.
func (d TemplateData) Designation(tier int) string {
	return d.Designations[tier]
}

// TemplateComposer renders messages from text/template templates with the
// Sprig function library. It never calls out and serves as fallback.
type TemplateComposer struct {
	templates map[PromptVariant]*template.Template
}

// NewTemplateComposer parses the given templates over DefaultTemplates.
func NewTemplateComposer(overrides map[PromptVariant]string) (*TemplateComposer, error) {
	sources := make(map[PromptVariant]string, len(DefaultTemplates))
	for k, v := range DefaultTemplates {
		sources[k] = v
	}
	for k, v := range overrides {
		if _, ok := sources[k]; !ok {
			return nil, fmt.Errorf("unknown template variant %q", k)
		}
		sources[k] = v
	}

	funcMap := sprig.TxtFuncMap()
	parsed := make(map[PromptVariant]*template.Template, len(sources))
	for k, src := range sources {
		tmpl, err := template.New(string(k)).Funcs(funcMap).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", k, err)
		}
		parsed[k] = tmpl
	}
	return &TemplateComposer{templates: parsed}, nil
}

// Compose renders the template for the request's variant.
func (c *TemplateComposer) Compose(_ context.Context, req escalation.ComposeRequest) (string, error) {
	tmpl := c.templates[Variant(req)]
	data := TemplateData{
		ComposeRequest: req,
		Kind:           req.Kind(),
		AE:             req.Record.AEName,
		Stars:          Stars(req.Context.PriorityScore),
		Strength:       StrengthLine(req),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return collapseBlankLines(buf.String()), nil
}

// collapseBlankLines drops empty lines left by optional template parts.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, " "))
		}
	}
	return strings.Join(out, "\n")
}
