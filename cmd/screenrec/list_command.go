package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
	ioutils "github.com/handiism/screen-recorder/internal/io"
	"github.com/handiism/screen-recorder/internal/metadata"
	"github.com/handiism/screen-recorder/internal/playlist"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var extended bool
	var outputPath string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved recordings with their addresses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()

				recs, err := a.Reload(runCtx)
				var resolveErr *metadata.ResolveError
				if err != nil && !errors.As(err, &resolveErr) {
					return err
				}
				if resolveErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", resolveErr)
				}

				if formatFlag != "" {
					format, err := playlist.ParseFormat(formatFlag)
					if err != nil {
						return err
					}
					content := a.Playlist(format, extended)
					if outputPath == "" {
						fmt.Fprint(out, content)
						return nil
					}
					if err := ioutils.WriteFileAtomic(runCtx, outputPath, []byte(content)); err != nil {
						return fmt.Errorf("write playlist: %w", err)
					}
					fmt.Fprintf(out, "✅ Wrote %d recording(s) to %s\n", len(recs), outputPath)
					return nil
				}

				if len(recs) == 0 {
					fmt.Fprintln(out, "No recordings yet.")
					return nil
				}
				rows := make([][]string, 0, len(recs))
				for _, rec := range recs {
					address := rec.DownloadURL
					if address == "" {
						address = "-"
					}
					rows = append(rows, []string{rec.ID, rec.FileName, address})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "File", "Address"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "playlist", "p", "", "Print a playlist instead (m3u, pls, wpl)")
	cmd.Flags().BoolVar(&extended, "extended", false, "Use extended M3U directives")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the playlist to this file")
	return cmd
}
