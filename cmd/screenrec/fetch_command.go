package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id> [destination]",
		Short: "Download a recording to a file or directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := "."
			if len(args) == 2 {
				dest = args[1]
			}

			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				lastPercent := -1

				path, err := a.Fetch(runCtx, args[0], dest, func(written, total int64) {
					if !ctx.verbose() || total <= 0 {
						return
					}
					percent := int(written * 100 / total)
					if percent/10 != lastPercent/10 {
						lastPercent = percent
						fmt.Fprintf(out, "   %d%%\n", percent)
					}
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✅ Saved %s\n", path)
				return nil
			})
		},
	}
}
