// Package storage provides resumable object storage for uploaded recordings.
//
// # Backends
//
//   - FSStore: files below a root directory, served over HTTP or addressed
//     with file:// URLs
//   - MemoryStore: in-process, used by tests and the "memory" backend
//
// # Resumable Uploads
//
// UploadTask drives a session through an ObjectStore:
//
//	task := storage.NewUploadTask(store, model.ObjectKey(rec.FileName), data, "video/mp4", 256*1024)
//	info, err := task.Run(ctx, func(s storage.Snapshot) {
//	    fmt.Printf("Upload is %.0f%% done\n", s.Percent())
//	})
//	if err != nil {
//	    // task.Run(ctx, ...) again resumes at the committed offset
//	}
//	url, err := store.DownloadURL(ctx, info.Key)
package storage
