// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Reading local videos for upload
//   - Atomic file writes for playlists and downloads
//   - Filename sanitization for cross-platform compatibility
//   - Thumbnail scaling
//
// # File Operations
//
//	// Write a playlist without exposing a half-written file
//	err := ioutils.WriteFileAtomic(ctx, "/path/to/list.m3u", content)
//
//	// Stream a download into place
//	f, err := ioutils.CreateAtomic("/downloads/recording.mp4")
//	defer f.Cleanup()
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	thumb, _ := svc.Thumbnail(ctx, pngFrame, 320)
package ioutils
