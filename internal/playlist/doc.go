// Package playlist renders recording listings as playlist files.
//
// Supported formats:
//   - M3U: plain list of addresses, or extended with #EXTINF entries
//   - PLS: INI-style playlist
//   - WPL: Windows Media Player XML playlist
//
// # Usage
//
//	format, err := playlist.ParseFormat("m3u")
//	content := playlist.NewCreator(format, true).Create("Screen recordings", recs)
//	err = ioutils.WriteFileAtomic(ctx, "recordings"+format.Extension(), []byte(content))
//
// Recordings without a retrieval address are left out.
package playlist
