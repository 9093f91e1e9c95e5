package library

import (
	"sync"

	"github.com/handiism/screen-recorder/internal/model"
)

// Library is the current view of saved recordings. It is safe for
// concurrent use.
type Library struct {
	mu   sync.RWMutex
	recs []model.Recording
}

// New returns an empty Library.
func New() *Library {
	return &Library{}
}

// Replace swaps the whole list for recs. Loading from the metadata store
// always goes through Replace so reloading never duplicates entries.
func (l *Library) Replace(recs []model.Recording) {
	cp := make([]model.Recording, len(recs))
	copy(cp, recs)

	l.mu.Lock()
	l.recs = cp
	l.mu.Unlock()
}

// Append adds a freshly saved recording to the end of the list.
func (l *Library) Append(rec model.Recording) {
	l.mu.Lock()
	l.recs = append(l.recs, rec)
	l.mu.Unlock()
}

// All returns a copy of the list in display order.
func (l *Library) All() []model.Recording {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cp := make([]model.Recording, len(l.recs))
	copy(cp, l.recs)
	return cp
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.recs)
}

// Lookup finds a recording by file name.
func (l *Library) Lookup(fileName string) (model.Recording, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, rec := range l.recs {
		if rec.FileName == fileName {
			return rec, true
		}
	}
	return model.Recording{}, false
}

// LookupID finds a recording by identifier.
func (l *Library) LookupID(id string) (model.Recording, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, rec := range l.recs {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.Recording{}, false
}

// AddressFor returns the retrieval address of the recording with the given
// file name, or "" when the recording is unknown or unresolved.
func (l *Library) AddressFor(fileName string) string {
	rec, _ := l.Lookup(fileName)
	return rec.DownloadURL
}
