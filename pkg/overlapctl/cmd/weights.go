package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
)

func NewWeightsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect and change scoring weights",
	}
	cmd.AddCommand(newWeightsListCommand(), newWeightsSetCommand())
	return cmd
}

func newWeightsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scoring weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			weights, err := c.Weights().List(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, weights, func(w io.Writer) { output.WriteWeightTable(w, weights) })
		},
	}
}

func newWeightsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set SECTION.ATTRIBUTE=WEIGHT...",
		Short:   "Update one or more weights",
		Example: "  overlapctl weights set opportunity.winnability=0.4 partner.stickiness=0.1",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := parseWeightArgs(args)
			if err != nil {
				return err
			}
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := c.Weights().Update(cmd.Context(), ws)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, res.Message)
				output.WriteTrigger(w, res.Trigger)
			})
		},
	}
}

func parseWeightArgs(args []string) (overlap.WeightSet, error) {
	ws := overlap.WeightSet{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected SECTION.ATTRIBUTE=WEIGHT, got %q", arg)
		}
		section, attr, ok := strings.Cut(key, ".")
		if !ok {
			return nil, fmt.Errorf("expected SECTION.ATTRIBUTE, got %q", key)
		}
		s := overlap.Section(section)
		if !overlap.IsKnownAttribute(s, attr) {
			return nil, fmt.Errorf("unknown weight %s.%s", section, attr)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", value, err)
		}
		if ws[s] == nil {
			ws[s] = map[string]float64{}
		}
		ws[s][attr] = v
	}
	return ws, nil
}
