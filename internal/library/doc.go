// Package library holds the in-memory list of recordings shown to the user.
//
// A Library is safe for concurrent use. Reloading from the metadata store
// replaces the whole list; saving a new recording appends one entry:
//
//	lib := library.New()
//
//	recs, _ := store.LoadAll(ctx)
//	lib.Replace(recs) // never duplicates entries, however often it runs
//
//	lib.Append(saved)
//
// # Lookups
//
//	rec, ok := lib.LookupID("recording-0190...")
//	url := lib.AddressFor("recording-0190....mp4") // "" when unknown
//
// All returns a copy, so callers may keep or modify it freely.
package library
