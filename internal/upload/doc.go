// Package upload stores finished captures as recordings.
//
// # Pipeline
//
// The Pipeline coordinates one save:
//
//  1. Reject empty captures with ErrEmptyRecording
//  2. Concatenate the chunks into one object
//  3. Upload it to recordings/<id>.mp4 through a resumable storage.UploadTask
//  4. Resolve the retrieval address
//  5. Persist the descriptor and append it to the library
//  6. Upload a poster frame to thumbnails/<id>.jpg (optional)
//
// # Basic Usage
//
//	pipeline := upload.NewPipeline(objects, store, lib, upload.Options{ChunkSize: 256 << 10},
//	    func(event upload.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    }, logger)
//
//	rec, err := pipeline.Save(ctx, captured)
//	if errors.Is(err, upload.ErrEmptyRecording) {
//	    // nothing to upload
//	}
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	    Percent float64
//	}
//
// A verbose event carrying Percent is emitted after every committed chunk.
// There is no backpressure: the callback only observes the upload.
//
// Failed uploads are not retried.
package upload
