package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

func WriteRecordTable(w io.Writer, records []overlap.Record) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tOPPORTUNITY\tPARTNER\tAE\tLOGO\tCHAMPION")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name(), dash(r.PartnerName), dash(r.AEName), yesNo(r.LogoPotential), yesNo(r.PartnerChampion))
	}
	_ = tw.Flush()
}

func WriteScoreTable(w io.Writer, scores []api.RecordScore) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tOPPORTUNITY\tOPP_SCORE\tPARTNER_SCORE\tCOMBINED\tPRIORITY\tLEVEL")
	for _, s := range scores {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.0f%%\t%.2f\t%s\n",
			s.ID, s.Name(), s.OpportunityScore, s.PartnerScore, s.CombinedScorePercent, s.PriorityScore, s.PriorityLevel)
	}
	_ = tw.Flush()
}

func WriteRankingTable(w io.Writer, ranking []api.RankedCandidate) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "RANK\tID\tOPPORTUNITY\tPARTNER\tPRIORITY\tLEVEL\tSTATUS")
	for _, r := range ranking {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			r.Rank, r.RecordID, r.Name, dash(r.Partner), r.Context.PriorityScore, r.Context.PriorityLevel, rankStatus(r))
	}
	_ = tw.Flush()
}

// WriteCandidateTable prints an offline ranking that has no escalation state.
func WriteCandidateTable(w io.Writer, candidates []overlap.Candidate) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "RANK\tID\tOPPORTUNITY\tPRIORITY\tLEVEL\tQUALIFIES")
	for i, c := range candidates {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			i+1, c.Record.ID, c.Record.Name(), c.Context.PriorityScore, c.Context.PriorityLevel, yesNo(c.Context.Qualifies()))
	}
	_ = tw.Flush()
}

func WriteStateTable(w io.Writer, states []escalation.State, active string) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tRESOLVED_BY\tPROCESSED\tRESOLVED")
	for _, s := range states {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.RecordID, stateStatus(s, s.RecordID == active), dash(s.ResolvedBy), formatTime(s.ProcessedAt), formatTime(s.ResolvedAt))
	}
	_ = tw.Flush()
}

func WriteTeamTable(w io.Writer, members []escalation.TeamMember) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tTIER\tNAME\tDESIGNATION\tCHANNEL\tEMAIL\tMAX_MESSAGES")
	for _, m := range members {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%d\n",
			m.ID, m.Hierarchy, m.Name, dash(m.Designation), dash(m.ChannelID), dash(m.Email), m.MaxMessage)
	}
	_ = tw.Flush()
}

func WriteHierarchyTable(w io.Writer, h api.HierarchyResponse) {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "TIER\tDESIGNATION\tMEMBERS")
	for _, level := range h.Levels {
		names := ""
		for i, m := range level.Members {
			if i > 0 {
				names += ", "
			}
			names += m.Name
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", level.Tier, dash(h.Designations[level.Tier]), names)
	}
	_ = tw.Flush()
}

func WriteWeightTable(w io.Writer, weights []store.Weight) {
	sorted := append([]store.Weight(nil), weights...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Section != sorted[j].Section {
			return sorted[i].Section < sorted[j].Section
		}
		return sorted[i].Name < sorted[j].Name
	})
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "SECTION\tATTRIBUTE\tWEIGHT")
	for _, wt := range sorted {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", wt.Section, wt.Name, strconv.FormatFloat(wt.Weight, 'f', -1, 64))
	}
	_ = tw.Flush()
}

// WriteTrigger prints a one-line summary of a trigger result.
func WriteTrigger(w io.Writer, res escalation.TriggerResult) {
	switch res.Outcome {
	case escalation.OutcomeStarted:
		_, _ = fmt.Fprintf(w, "%s escalation for %s (priority %.2f, %s)\n", color.GreenString("started"), res.RecordID, res.PriorityScore, res.PriorityLevel)
	case escalation.OutcomeBusy:
		_, _ = fmt.Fprintf(w, "%s escalation for %s is still running\n", color.YellowString("busy:"), res.RecordID)
	case escalation.OutcomeNoCandidate:
		_, _ = fmt.Fprintln(w, color.YellowString("no eligible record to escalate"))
	case escalation.OutcomeFailed:
		_, _ = fmt.Fprintf(w, "%s %s\n", color.RedString("trigger failed:"), res.Error)
	default:
		_, _ = fmt.Fprintf(w, "trigger: %s\n", res.Outcome)
	}
}

func stateStatus(s escalation.State, active bool) string {
	switch {
	case active:
		return color.New(color.FgHiMagenta).Sprint("ACTIVE")
	case s.Resolved:
		return color.GreenString("RESOLVED")
	case s.Processed:
		return color.YellowString("PROCESSED")
	}
	return "PENDING"
}

func rankStatus(r api.RankedCandidate) string {
	if r.State != nil {
		if r.State.Resolved {
			return color.GreenString("RESOLVED")
		}
		if r.State.Processed {
			return color.YellowString("PROCESSED")
		}
	}
	if !r.Context.Qualifies() {
		return "BELOW_THRESHOLD"
	}
	if r.Eligible {
		return color.CyanString("ELIGIBLE")
	}
	return "-"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
