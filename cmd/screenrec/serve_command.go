package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
	apphttp "github.com/handiism/screen-recorder/internal/http"
	"github.com/handiism/screen-recorder/internal/logging"
	"github.com/handiism/screen-recorder/internal/metadata"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recording list, stored objects and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = settings.ListenAddr
			}

			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				logger := logging.WithComponent(ctx.logger(cmd.ErrOrStderr()), "http")

				if _, err := a.Reload(runCtx); err != nil {
					var resolveErr *metadata.ResolveError
					if !errors.As(err, &resolveErr) {
						return err
					}
					logger.Warn().Err(err).Msg("some recordings have no address")
				}

				fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  Listening on http://%s\n", addr)
				err := apphttp.NewServer(a, a.Objects(), logger).ListenAndServe(runCtx, addr)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to listen_addr from the config)")
	return cmd
}
