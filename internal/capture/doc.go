// Package capture records the screen into an ordered list of encoded chunks.
//
// # Controller
//
// The Controller is a two-state machine (idle, recording) over a Source:
//
//	ctrl := capture.NewController(&capture.FFmpegSource{Display: ":0.0"}, logger)
//	if err := ctrl.Start(ctx); err != nil {
//	    // errors.Is(err, capture.ErrCaptureDenied)
//	}
//	...
//	rec, err := ctrl.Stop()
//	data := rec.Bytes()
//
// Start only switches to recording once the source granted a stream and the
// stream started. Stop always empties the chunk buffer, so chunks of one
// recording are never handed out twice.
//
// # FFmpeg
//
// FFmpegSource runs ffmpeg with x11grab (Linux and other X11 systems) or
// avfoundation (macOS) and muxes fragmented MP4 to stdout, which is read in
// fixed-size chunks. Stopping sends "q" on stdin so ffmpeg finalizes the
// last fragment.
package capture
