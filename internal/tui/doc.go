// Package tui provides a Bubble Tea terminal user interface for screen-recorder.
//
// The model drives any Recorder, normally an *app.App:
//
//	err := tui.Run(a)
//
// # Keys
//
//   - space, r: start recording, or stop and upload
//   - l: reload the recording list
//   - v: toggle verbose progress messages
//   - q, esc: quit while idle
//   - ctrl+c: quit at any time
//
// Upload progress arrives through the recorder's progress handler and drives
// the progress bar; the last ten messages are kept in the log pane.
package tui
