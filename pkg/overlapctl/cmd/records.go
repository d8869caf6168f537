package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
	"github.com/moative/overlap-escalation/pkg/store"
)

func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "Manage overlap records",
	}
	cmd.AddCommand(
		newRecordsListCommand(),
		newRecordsGetCommand(),
		newRecordsScoresCommand(),
		newRecordsRankingCommand(),
		newRecordsImportCommand(),
		newRecordsDeleteCommand(),
	)
	return cmd
}

func newRecordsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			records, err := c.Records().List(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, records, func(w io.Writer) { output.WriteRecordTable(w, records) })
		},
	}
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			rec, err := c.Records().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			format := rt.OutputFormat()
			if format == output.FormatTable {
				format = output.FormatYAML
			}
			return output.WriteObject(rt.Writer(), format, rec)
		},
	}
}

func newRecordsScoresCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scores",
		Short: "Show section and priority scores under the current weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			scores, err := c.Records().Scores(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, scores, func(w io.Writer) { output.WriteScoreTable(w, scores) })
		},
	}
}

func newRecordsRankingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Show the escalation order with per-record status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			ranking, err := c.Records().Ranking(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, ranking, func(w io.Writer) { output.WriteRankingTable(w, ranking) })
		},
	}
}

func newRecordsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert records from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			records, err := store.LoadRecordsFile(args[0])
			if err != nil {
				return err
			}
			res, err := c.Records().Import(cmd.Context(), records)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "imported %d records\n", res.Count)
				output.WriteTrigger(w, res.Trigger)
			})
		},
	}
}

func newRecordsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := c.Records().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "record %s deleted\n", args[0])
			return nil
		},
	}
}
