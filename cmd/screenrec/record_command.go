package main

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen until Enter or Ctrl+C, then upload the recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				status := cmd.ErrOrStderr()

				if err := a.Start(runCtx); err != nil {
					return err
				}
				if duration > 0 {
					fmt.Fprintf(status, "🔴 Recording for %s (Ctrl+C stops early)\n", duration)
				} else {
					fmt.Fprintln(status, "🔴 Recording... press Enter or Ctrl+C to stop")
				}

				waitForStop(runCtx, cmd, duration)

				// The run context may already be cancelled by Ctrl+C; saving
				// must still complete.
				saveCtx := context.WithoutCancel(runCtx)
				rec, err := a.Stop(saveCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, rec.DownloadURL)
				return nil
			})
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop automatically after this long")
	return cmd
}

// waitForStop returns on Enter, on cancellation, or once duration elapsed.
// A closed stdin leaves only the other two.
func waitForStop(ctx context.Context, cmd *cobra.Command, duration time.Duration) {
	enter := make(chan struct{})
	go func() {
		if _, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n'); err == nil {
			close(enter)
		}
	}()

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-enter:
	case <-ctx.Done():
	case <-timeout:
	}
}
