package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/honeywatch/internal/app"
)

// newRootCmd builds the command tree. The root command runs the dashboard.
func newRootCmd() *cobra.Command {
	opts := &app.Options{Version: version}

	root := &cobra.Command{
		Use:   "honeywatch",
		Short: "Terminal dashboard for a honeypot collector",
		Long: `honeywatch polls a honeypot collector's HTTP API and shows recorded
connection attempts in a terminal dashboard.

The collector address is discovered at run time. Every cycle tries, in
order: the configured api_url (with ${HOST_IP} replaced by host_ip or the
local hostname), the same host on the collector port, localhost, and
127.0.0.1. The first candidate that answers supplies the data.

Configuration is read from ~/.config/honeywatch/config.toml and
HONEYWATCH_* environment variables. Flags override both.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), *opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/honeywatch/config.toml)")
	flags.StringVar(&opts.APIURL, "api-url", "", "collector base URL, may contain ${HOST_IP}")
	flags.DurationVar(&opts.PollInterval, "poll", 0, "poll interval (default 10s)")
	root.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "serve state, events and metrics on this address")
	root.Flags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/honeywatch/prefs.toml)")

	root.AddCommand(
		newOnceCmd(opts),
		newCandidatesCmd(opts),
		newVersionCmd(),
	)
	return root
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "honeywatch %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
