package main

import (
	"github.com/spf13/cobra"

	"github.com/five82/honeywatch/internal/app"
	"github.com/five82/honeywatch/internal/logging"
)

// newOnceCmd runs a single poll cycle without the dashboard.
func newOnceCmd(opts *app.Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run one poll cycle and print the result",
		Long: `Run one poll cycle against the candidate endpoints and print the
resulting state. Exits non-zero when no candidate answered.

Example:
  honeywatch once
  honeywatch once -o json --api-url http://collector:8000`,
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
			logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Writer: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			snap, _, cycleErr := app.Once(cmd.Context(), cfg, logger, opts.Version)
			if err := writeSnapshot(cmd.OutOrStdout(), format, snap); err != nil {
				return err
			}
			return cycleErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(formatTable), "output format: table, json or yaml")
	return cmd
}
