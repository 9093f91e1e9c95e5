package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Save existing video files as recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				for _, path := range args {
					rec, err := a.UploadFile(runCtx, path)
					if err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, rec.DownloadURL)
				}
				return nil
			})
		},
	}
}
