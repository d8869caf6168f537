package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
	"github.com/moative/overlap-escalation/pkg/version"
)

type versionView struct {
	Client version.BuildInfo  `json:"client" yaml:"client"`
	Server *version.BuildInfo `json:"server,omitempty" yaml:"server,omitempty"`
}

func NewVersionCommand() *cobra.Command {
	var clientOnly bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show overlapctl and overlapd versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			view := versionView{Client: version.GetBuildInfo()}
			var serverErr error
			if !clientOnly {
				c, err := rt.client()
				if err != nil {
					return err
				}
				info, err := c.Version(cmd.Context())
				if err == nil {
					view.Server = &info
				}
				serverErr = err
			}

			format := rt.OutputFormat()
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, view)
			}
			w := rt.Writer()
			_, _ = fmt.Fprintf(w, "overlapctl %s\n", view.Client)
			switch {
			case view.Server != nil:
				_, _ = fmt.Fprintf(w, "overlapd   %s\n", view.Server)
			case serverErr != nil:
				_, _ = fmt.Fprintf(w, "overlapd   unavailable: %v\n", serverErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clientOnly, "client", false, "Only print the client version")

	return cmd
}
