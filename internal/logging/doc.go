// Package logging configures the zerolog loggers shared by the CLI and the TUI.
//
//	logger := logging.New(logging.Config{Level: "debug", Console: true})
//	uploads := logging.WithComponent(logger, "upload")
//	uploads.Info().Str("id", rec.ID).Msg("recording saved")
//
// An empty Level falls back to SCREENREC_LOG_LEVEL, then info.
package logging
