package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/honeywatch/internal/app"
)

var errNoHealthyCandidate = errors.New("no candidate endpoint is healthy")

// newCandidatesCmd lists the candidate endpoints in trial order.
func newCandidatesCmd(opts *app.Options) *cobra.Command {
	var (
		probe  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List candidate collector endpoints in trial order",
		Long: `List the candidate collector endpoints in the order a poll cycle tries
them. With --probe, call /health on each one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := app.LoadConfig(*opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !probe {
				candidates := cfg.Resolver().Candidates()
				if format != formatTable {
					return writeStructured(out, format, candidates)
				}
				for i, c := range candidates {
					fmt.Fprintf(out, "%d. %s\n", i+1, c)
				}
				return nil
			}

			results := app.Probe(cmd.Context(), cfg, opts.Version)
			if err := writeProbe(out, format, results); err != nil {
				return err
			}
			for _, r := range results {
				if r.Healthy {
					return nil
				}
			}
			return errNoHealthyCandidate
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "health-check every candidate")
	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "output format: table, json or yaml")
	return cmd
}
