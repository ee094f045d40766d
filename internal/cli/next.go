package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/DEEJ4Y/callsched"
	"github.com/spf13/cobra"
)

func newNextCmd() *cobra.Command {
	var (
		flagOffset   string
		flagInterval string
		flagCount    int
		flagFrom     string
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the upcoming fire times for an offset and interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := map[string]any{
				callsched.KeyHandler:  func() {},
				callsched.KeyOffset:   numberOrString(flagOffset),
				callsched.KeyInterval: numberOrString(flagInterval),
			}
			spec, err := callsched.DecodeSpec(raw, nil)
			if err != nil {
				return err
			}

			from := time.Now()
			if flagFrom != "" {
				if from, err = time.Parse(time.RFC3339, flagFrom); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}

			sched := callsched.DailySchedule{Offset: spec.DailyOffset, Interval: spec.Interval}
			at := from
			for i := 0; i < flagCount; i++ {
				at = sched.Next(at)
				fmt.Fprintln(cmd.OutOrStdout(), at.Format(time.RFC3339Nano))
				if spec.Interval <= 0 {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagOffset, "offset", "0", "Offset after UTC midnight: milliseconds, a duration (90m) or HH:MM[:SS]")
	cmd.Flags().StringVar(&flagInterval, "interval", "0", "Repeat interval: milliseconds or a duration; 0 fires once")
	cmd.Flags().IntVarP(&flagCount, "count", "n", 5, "Number of fire times to print")
	cmd.Flags().StringVar(&flagFrom, "from", "", "Reference time in RFC 3339 (default now)")

	return cmd
}

// numberOrString passes plain integers through as milliseconds.
func numberOrString(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
