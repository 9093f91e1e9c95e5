// Package metadata stores recording descriptors in a key-value backend.
//
// # Layout
//
// Every recording is one record under recordings/<id>, holding
// {"fileName": ..., "downloadURL": ...} as JSON. Writes for the same id
// replace each other.
//
// # Backends
//
//   - MemoryKV: in-process map
//   - RedisKV: one string key per record, listed with SCAN
//   - BadgerKV: embedded Badger database, listed by prefix iteration
//   - SQLiteKV: a single kv(path, value) table in a SQLite file
//
// # Loading
//
//	store := metadata.NewStore(kv, objects, 4, logger)
//	recs, err := store.LoadAll(ctx)
//	var resolveErr *metadata.ResolveError
//	if errors.As(err, &resolveErr) {
//	    // recs is complete; failed entries have an empty DownloadURL
//	}
//
// Retrieval addresses are resolved concurrently, at most the configured
// number at a time. A record that does not decode still appears in the list,
// with the file name derived from its id, and is reported in the
// *ResolveError.
package metadata
