// Package cli implements the callsched command.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel  string
	flagLogFormat string

	logger zerolog.Logger
)

// NewRootCmd creates the root cobra command for the callsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "callsched",
		Short: "Run calls at a time of day, once or on an interval",
		Long:  "callsched runs the jobs listed in a schedule file at daily offsets and fixed intervals.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = NewLogger(cmd.ErrOrStderr(), ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newRunCmd(),
		newNextCmd(),
	)

	return root
}
