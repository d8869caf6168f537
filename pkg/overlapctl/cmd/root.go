package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/overlapctl/client"
	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
)

const defaultServer = "http://localhost:8080"

type Config struct {
	Server       string
	OutputWriter io.Writer
}

type runtimeState struct {
	server       string
	outputFormat string
	timeout      time.Duration
	noColor      bool
	writer       io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{server: cfg.Server, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:          "overlapctl",
		Short:        "Inspect and drive the overlap escalation service",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.server == "" {
				rt.server = os.Getenv("OVERLAPCTL_SERVER")
			}
			if rt.server == "" {
				rt.server = defaultServer
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("OVERLAPCTL_OUTPUT")
			}
			// color already honors NO_COLOR.
			if rt.noColor {
				color.NoColor = true
			}
			_, err := output.ParseFormat(rt.outputFormat)
			return err
		},
	}

	root.PersistentFlags().StringVar(&rt.server, "server", rt.server, "overlapd base URL (env OVERLAPCTL_SERVER)")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().DurationVar(&rt.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&rt.noColor, "no-color", false, "Disable colored output")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewStatusCommand(),
		NewTriggerCommand(),
		NewResolveCommand(),
		NewRecordsCommand(),
		NewRankCommand(),
		NewTeamCommand(),
		NewWeightsCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() output.Format {
	f, err := output.ParseFormat(rt.outputFormat)
	if err != nil {
		return output.FormatTable
	}
	return f
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) client() (*client.Client, error) {
	opts := []client.Option{client.WithServer(rt.server)}
	if rt.timeout > 0 {
		opts = append(opts, client.WithTimeout(rt.timeout))
	}
	return client.New(opts...)
}

// setup returns the runtime and a client for commands that talk to overlapd.
func setup(cmd *cobra.Command) (*runtimeState, *client.Client, error) {
	rt, err := getRuntime(cmd)
	if err != nil {
		return nil, nil, err
	}
	c, err := rt.client()
	if err != nil {
		return nil, nil, err
	}
	return rt, c, nil
}

// render writes obj as JSON/YAML, or calls table for the table format.
func render(rt *runtimeState, obj any, table func(w io.Writer)) error {
	format := rt.OutputFormat()
	if format == output.FormatTable {
		table(rt.Writer())
		return nil
	}
	return output.WriteObject(rt.Writer(), format, obj)
}
