package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
)

type statusView struct {
	Active api.ActiveResponse `json:"active" yaml:"active"`
	States []escalation.State `json:"states" yaml:"states"`
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active escalation and per-record state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			active, err := c.Escalation().Active(cmd.Context())
			if err != nil {
				return err
			}
			states, err := c.Escalation().States(cmd.Context())
			if err != nil {
				return err
			}
			view := statusView{Active: active, States: states}
			return render(rt, view, func(w io.Writer) {
				if active.Active {
					_, _ = fmt.Fprintf(w, "Active escalation: %s\n\n", color.New(color.FgHiMagenta).Sprint(active.RecordID))
				} else {
					_, _ = fmt.Fprint(w, "No active escalation\n\n")
				}
				output.WriteStateTable(w, states, active.RecordID)
			})
		},
	}
}

func NewTriggerCommand() *cobra.Command {
	var exclude string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Ask overlapd to escalate the best eligible record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := c.Escalation().Trigger(cmd.Context(), exclude)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) { output.WriteTrigger(w, res) })
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "Record id to skip for this selection")
	return cmd
}

func NewResolveCommand() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "resolve RECORD_ID",
		Short: "Mark a record resolved and move on to the next one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := c.Escalation().Resolve(cmd.Context(), args[0], by)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				switch {
				case res.AlreadyResolved:
					_, _ = fmt.Fprintf(w, "%s was already resolved\n", res.RecordID)
				case res.WasActive:
					_, _ = fmt.Fprintf(w, "%s resolved, active escalation stopped\n", color.GreenString(res.RecordID))
				default:
					_, _ = fmt.Fprintf(w, "%s resolved\n", color.GreenString(res.RecordID))
				}
				output.WriteTrigger(w, res.Next)
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "overlapctl", "Who resolved the record")
	return cmd
}
