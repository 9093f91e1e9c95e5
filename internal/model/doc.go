// Package model defines the core data structures used throughout
// the screen-recorder application.
//
// # Recording
//
// Recording is the only entity. It is identified by a timestamp-derived ID;
// its file name is always derived from that ID:
//
//	rec := model.NewRecording()
//	fmt.Println(rec.ID)       // "recording-0190f3a2-7c1e-7d3a-9f4e-2b6c1d0e8a11"
//	fmt.Println(rec.FileName) // rec.ID + ".mp4"
//
// # Keys
//
// Objects and metadata records share the "recordings/" namespace:
//
//	model.ObjectKey(rec.FileName) // "recordings/<id>.mp4" in object storage
//	model.MetadataKey(rec.ID)     // "recordings/<id>" in the key-value store
//	model.ThumbnailKey(rec.ID)    // "thumbnails/<id>.jpg" in object storage
package model
