package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/endpointkit/internal/app"
	"github.com/samvad-hq/endpointkit/internal/config"
	"github.com/samvad-hq/endpointkit/internal/logger"
	"github.com/samvad-hq/endpointkit/internal/render"
)

// globalFlags override the matching config keys when set.
type globalFlags struct {
	baseURL     string
	targetsFile string
	sinksFile   string
	journalMode string
	quiet       bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "apicall",
		Short:         "Calls declared API targets and decodes their JSON responses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&g.baseURL, "base-url", "", "override base_url")
	flags.StringVar(&g.targetsFile, "targets", "", "override targets_file (target set or OpenAPI document)")
	flags.StringVar(&g.sinksFile, "sinks", "", "override sinks_file")
	flags.StringVar(&g.journalMode, "journal", "", "override journal_mode (off, record, replay)")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "disable verbose request logging")

	root.AddCommand(listSubcommand(g), callSubcommand(g))
	return root
}

// setup loads config, applies flag overrides and builds the runner.
func (g *globalFlags) setup(ctx context.Context) (*app.Runner, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.baseURL != "" {
		cfg.BaseURL = g.baseURL
	}
	if g.targetsFile != "" {
		cfg.TargetsFile = g.targetsFile
	}
	if g.sinksFile != "" {
		cfg.SinksFile = g.sinksFile
	}
	if g.journalMode != "" {
		cfg.JournalMode = g.journalMode
	}
	if g.quiet {
		cfg.VerboseLogging = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.Default().Named("apicall")

	runner, err := app.NewRunner(ctx, cfg, log)
	if err != nil {
		_ = logger.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := runner.Close(); err != nil {
			log.ErrorObj("runner close failed", "error", err.Error())
		}
		_ = logger.Close()
	}
	return runner, cleanup, nil
}

func listSubcommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists the targets of the configured set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, cleanup, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Specs(runner.List()))
			return err
		},
	}
}

type callFlags struct {
	params  []string
	field   string
	many    bool
	output  string
	metrics bool
}

func callSubcommand(g *globalFlags) *cobra.Command {
	f := &callFlags{}
	cmd := &cobra.Command{
		Use:   "call <target>",
		Short: "Calls a target and prints the decoded response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(f.params)
			if err != nil {
				return err
			}
			runner, cleanup, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := runner.Call(cmd.Context(), app.CallRequest{
				Target:    args[0],
				Params:    params,
				FieldPath: f.field,
				Many:      f.many,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := render.Write(out, f.output, result); err != nil {
				return err
			}
			if f.metrics {
				table, err := render.Metrics(runner.Metrics())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, table)
				return err
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.params, "param", "p", nil, "target parameter as key=value (repeatable)")
	flags.StringVar(&f.field, "field", "", "dot-separated field path to decode (default: the target's)")
	flags.BoolVar(&f.many, "many", false, "decode an array of values")
	flags.StringVarP(&f.output, "output", "o", render.FormatJSON, "output format: json or table")
	flags.BoolVar(&f.metrics, "metrics", false, "print request metrics after the result")
	return cmd
}

func parseParams(kvs []string) (map[string]string, error) {
	params := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", kv)
		}
		params[k] = v
	}
	return params, nil
}
