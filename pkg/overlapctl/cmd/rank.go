package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
	"github.com/moative/overlap-escalation/pkg/store"
)

type rankView struct {
	Next       string              `json:"next,omitempty" yaml:"next,omitempty"`
	Candidates []overlap.Candidate `json:"candidates" yaml:"candidates"`
}

// NewRankCommand scores a records file locally, without a running server.
func NewRankCommand() *cobra.Command {
	var recordsPath, weightsPath, exclude string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a records file offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			records, err := store.LoadRecordsFile(recordsPath)
			if err != nil {
				return err
			}
			weights := overlap.DefaultWeights()
			if weightsPath != "" {
				if weights, err = loadWeightsFile(weightsPath); err != nil {
					return err
				}
			}

			ranked := overlap.Rank(overlap.NewEngine().ScoreAll(records, weights))
			view := rankView{Candidates: ranked}
			if best, ok := overlap.SelectBest(ranked, func(string) bool { return true }, exclude); ok {
				view.Next = best.Record.ID
			}
			return render(rt, view, func(w io.Writer) {
				output.WriteCandidateTable(w, ranked)
				if view.Next != "" {
					_, _ = fmt.Fprintf(w, "\nnext escalation: %s\n", view.Next)
				} else {
					_, _ = fmt.Fprintln(w, "\nno record qualifies for escalation")
				}
			})
		},
	}
	cmd.Flags().StringVar(&recordsPath, "records", "", "JSON file with records")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "YAML file with weights, merged over the defaults")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Record id to skip when picking the next escalation")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}

// loadWeightsFile reads
//
//	opportunity:
//	  winnability: 0.4
//	partner:
//	  stickiness: 0.1
//
// and overlays it on the default weights.
func loadWeightsFile(path string) (overlap.WeightSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var raw map[string]map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse weights file: %w", err)
	}
	ws := overlap.DefaultWeights()
	for section, attrs := range raw {
		s := overlap.Section(section)
		if _, ok := ws[s]; !ok {
			return nil, fmt.Errorf("unknown weight section %q", section)
		}
		for attr, v := range attrs {
			if !overlap.IsKnownAttribute(s, attr) {
				return nil, fmt.Errorf("unknown %s attribute %q", section, attr)
			}
			ws[s][attr] = v
		}
	}
	return ws, nil
}
