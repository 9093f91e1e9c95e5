// Package app wires capture, upload, metadata and the library from settings.
//
// An App is built once per process from explicit configuration and owns
// every backend for its lifetime:
//
//	settings, _ := config.Load(config.DefaultConfigPath())
//	a, err := app.New(ctx, settings, logger)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
// # Recording
//
//	if err := a.Start(ctx); err != nil {
//	    // capture.ErrCaptureDenied, app.ErrRecorderBusy, ...
//	}
//	rec, err := a.Stop(ctx) // uploads, persists and lists the recording
//
// Only one process records per lock_path; a second Start fails with
// ErrRecorderBusy until the first one stops.
//
// # Listing and Fetching
//
//	recs, err := a.Reload(ctx)     // replaces the library
//	m3u := a.Playlist(playlist.FormatM3U, true)
//	path, err := a.Fetch(ctx, rec.ID, "~/Videos", nil)
//
// Tests build an App over in-memory backends with NewWithBackends.
package app
