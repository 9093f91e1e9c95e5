// Command screenrec records the screen, uploads recordings to object storage
// and lists or serves what has been saved.
//
// Usage:
//
//	screenrec record                  # record until Enter or Ctrl+C, then upload
//	screenrec list                    # list recordings with their addresses
//	screenrec list --playlist m3u -o recordings.m3u
//	screenrec upload demo.mp4         # save an existing video as a recording
//	screenrec fetch <id> ~/Videos     # download a recording
//	screenrec serve                   # HTTP listing, object serving and metrics
//	screenrec config init             # write a default configuration file
package main
