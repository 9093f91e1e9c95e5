// Package config provides configuration management for screen-recorder.
//
// This package handles:
//   - Loading and saving settings from JSON or TOML files
//   - Default configuration values
//   - SCREENREC_* environment overrides
//   - Validation of backend choices
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Objects under ~/.local/share/screenrec/objects
//	// Metadata in ~/.local/share/screenrec/metadata.db (sqlite)
//	// Thumbnails enabled
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Configuration Options
//
// Settings includes options for:
//   - Object storage backend, directory, public base URL and upload chunk size
//   - Metadata backend (sqlite, badger, redis, memory) and its location
//   - Address resolution concurrency
//   - ffmpeg capture source (display, audio device, frame rate)
//   - Thumbnails
//   - Logging and the HTTP listen address
package config
