// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
)

// PromptVariant identifies which instruction set a prompt uses.
type PromptVariant string

const (
	VariantLogoPotential    PromptVariant = "logo_potential"
	VariantMainTier1        PromptVariant = "main_tier1"
	VariantMainTier2        PromptVariant = "main_tier2"
	VariantMainExecutive    PromptVariant = "main_executive"
	VariantFollowUpTier1    PromptVariant = "follow_up_tier1"
	VariantFollowUpEscalate PromptVariant = "follow_up_higher"
)

// Variant picks the prompt variant for a request. Logo potential wins over
// everything; tier 3 and above share the executive main prompt.
func Variant(req escalation.ComposeRequest) PromptVariant {
	switch {
	case req.Context.LogoPotential:
		return VariantLogoPotential
	case !req.IsFollowUp() && req.Tier <= 1:
		return VariantMainTier1
	case !req.IsFollowUp() && req.Tier == 2:
		return VariantMainTier2
	case !req.IsFollowUp():
		return VariantMainExecutive
	case req.Tier <= 1:
		return VariantFollowUpTier1
	default:
		return VariantFollowUpEscalate
	}
}

var instructions = map[PromptVariant]string{
	VariantLogoPotential: "Write a message emphasizing that this is a very important, ground-breaking opportunity with exceptional strategic value and urgency. " +
		"Do not mention calculations, scores, or star ratings. The message should be motivating, business-focused, and convey the urgency and significance of this opportunity.",
	VariantMainTier1: "Write a concise, professional, and engaging Slack message for this scenario. Do not just state facts or scores; clearly communicate the benefit and value of this overlap opportunity, " +
		"and what the team stands to gain if it is won. The message should be motivating and business-focused, not robotic or list-like.",
	VariantMainTier2: "Write a professional, motivating, and business-focused Slack message for a manager. Do not say you are flagging an opportunity for someone else. " +
		"Highlight the opportunity and its benefit, and ask the recipient to connect with the Account Executive (name and designation) to take next steps. " +
		"Reference the strategic value of collaboration and the benefit of leveraging the partner.",
	VariantMainExecutive: "Write a short, professional internal message explaining that this opportunity has already been routed through the usual channels but has not gained enough traction, " +
		"and that executive involvement or visibility may now be necessary to move it forward. Keep the tone clear, tactful, and solution-oriented.",
	VariantFollowUpTier1: "Write a casual, precise, and short follow-up Slack message. This is follow-up number %d. Nudge action without being formal or detailed. " +
		"Reference the opportunity and its benefit, and ask the recipient to connect directly with the partner or send a mail to discuss next steps.",
	VariantFollowUpEscalate: "Write a casual, precise, and short follow-up Slack message. Nudge action without being formal or detailed. " +
		"Reference the opportunity and its benefit, and ask the recipient to connect with the Account Executive, by name and designation, to discuss the opportunity.",
}

const commonRules = "Do not use greetings, sign-offs, em dashes, bullet points, markdown, or chatbot-like language. " +
	"Never list raw attribute names or scores. Output only the Slack message text."

// Stars renders a 0..5 score as a five character star rating.
func Stars(score float64) string {
	n := int(math.Round(score))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// StrengthLine is shown on main messages of scored records.
func StrengthLine(req escalation.ComposeRequest) string {
	if req.IsFollowUp() || req.Context.LogoPotential {
		return ""
	}
	return "Overlap Strength: " + Stars(req.Context.PriorityScore)
}

// HierarchyDescription lists the tier designations, e.g. "1=Account Executive, 2=Sales Manager".
func HierarchyDescription(designations map[int]string, tier int) string {
	if len(designations) == 0 {
		return fmt.Sprintf("%d (1=Account Executive, 2=Sales Manager, 3=Executive Staff)", tier)
	}
	tiers := make([]int, 0, len(designations))
	for t := range designations {
		tiers = append(tiers, t)
	}
	sort.Ints(tiers)
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, fmt.Sprintf("%d=%s", t, designations[t]))
	}
	return strings.Join(parts, ", ")
}

// describeContext summarises the scoring signals in plain words for the model.
func describeContext(ctx overlap.PriorityContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "priority %s", strings.ToLower(string(ctx.PriorityLevel)))
	if ctx.PriorityLevel == overlap.PriorityScored {
		fmt.Fprintf(&b, " %.1f of 5", ctx.PriorityScore)
	}
	writeSection := func(name string, values map[string]float64) {
		if len(values) == 0 {
			return
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "; %s signals:", name)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%g", k, values[k])
		}
	}
	writeSection("account", ctx.Opportunity)
	writeSection("partner", ctx.Partner)
	if ctx.HasChampion {
		b.WriteString("; the partner has an active champion on the deal")
	}
	return b.String()
}

// BuildPrompt assembles the prompt for one message.
func BuildPrompt(req escalation.ComposeRequest) string {
	rec := req.Record
	variant := Variant(req)
	instr := instructions[variant]
	if variant == VariantFollowUpTier1 {
		instr = fmt.Sprintf(instr, req.Index)
	}
	ae := rec.AEName
	if ae == "" {
		ae = "N/A"
	}

	var b strings.Builder
	b.WriteString("You are a partner operations assistant. ")
	fmt.Fprintf(&b, "Context: overlap opportunity between our company and partner %s", rec.PartnerName)
	if rec.PartnerSizeLabel != "" {
		fmt.Fprintf(&b, " (type: %s)", rec.PartnerSizeLabel)
	}
	fmt.Fprintf(&b, " with mutual account %s. ", rec.Name())
	fmt.Fprintf(&b, "Internal recipient: %s", req.Member.Name)
	if req.Member.Designation != "" {
		fmt.Fprintf(&b, " (%s)", req.Member.Designation)
	}
	fmt.Fprintf(&b, ", hierarchy tier %d. ", req.Tier)
	fmt.Fprintf(&b, "Hierarchy: %s. ", HierarchyDescription(req.Designations, req.Tier))
	fmt.Fprintf(&b, "Account Executive: %s. ", ae)
	fmt.Fprintf(&b, "Message: %s. ", req.Kind())
	fmt.Fprintf(&b, "Signals: %s. ", describeContext(req.Context))
	b.WriteString("Instructions: ")
	b.WriteString(instr)
	b.WriteString(" ")
	b.WriteString(commonRules)
	if line := StrengthLine(req); line != "" {
		b.WriteString(" Place this star rating on its own line right after the opening line: ")
		b.WriteString(line)
	}
	return b.String()
}

// BuildEmailPrompt asks for an outreach email draft from the recipient to
// the partner.
func BuildEmailPrompt(req escalation.ComposeRequest, company string) string {
	rec := req.Record
	title := req.Member.Designation
	if title == "" {
		title = "Account Executive"
	}
	return fmt.Sprintf("You are a partner operations assistant. "+
		"Context: collaboration opportunity between %s and partner %s at mutual account %s. "+
		"Sender: %s, %s at %s. Signals: %s. "+
		"Instructions: Write a concise, professional business email draft with a clear subject, a formal greeting, "+
		"a brief background, a summary of the opportunity and its significance, and the benefit of collaborating. "+
		"Do not use markdown or chatbot-like language. Output only the email draft including subject, greeting, body, and closing.",
		company, rec.PartnerName, rec.Name(), req.Member.Name, title, company, describeContext(req.Context))
}

// WantsEmailDraft reports whether the message gets an email draft appended.
func WantsEmailDraft(req escalation.ComposeRequest) bool {
	return req.Tier == 1 && !req.IsFollowUp()
}

// EmailDraftSeparator precedes the email draft appended to a message.
const EmailDraftSeparator = "\n\n---\n\nEMAIL DRAFT:\n"
