package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/screen-recorder/internal/metrics"
	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/storage"
)

// DefaultResolveConcurrency bounds the address resolution fan-out when the
// caller does not choose a limit.
const DefaultResolveConcurrency = 4

// record is the value written under recordings/<id>.
type record struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadURL"`
}

// ItemError is the failure of one recording during LoadAll.
type ItemError struct {
	ID  string
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// ResolveError reports the recordings whose retrieval address could not be
// resolved. LoadAll returns it together with the complete list.
type ResolveError struct {
	Failures []ItemError
}

func (e *ResolveError) Error() string {
	if len(e.Failures) == 1 {
		return "resolve address: " + e.Failures[0].Error()
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("resolve address: %d recordings failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ResolveError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Store persists recording descriptors in a KV backend and resolves their
// retrieval addresses against object storage.
type Store struct {
	kv          KV
	objects     storage.ObjectStore
	concurrency int
	logger      zerolog.Logger
}

// NewStore creates a Store. concurrency <= 0 selects DefaultResolveConcurrency.
func NewStore(kv KV, objects storage.ObjectStore, concurrency int, logger zerolog.Logger) *Store {
	if concurrency <= 0 {
		concurrency = DefaultResolveConcurrency
	}
	return &Store{
		kv:          kv,
		objects:     objects,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Persist writes the descriptor of rec. A second Persist for the same ID
// replaces the first.
func (s *Store) Persist(ctx context.Context, rec model.Recording) error {
	if rec.ID == "" {
		return fmt.Errorf("persist recording: empty id")
	}
	value, err := json.Marshal(record{FileName: rec.FileName, DownloadURL: rec.DownloadURL})
	if err != nil {
		return fmt.Errorf("persist %s: %w", rec.ID, err)
	}

	err = s.kv.Write(ctx, model.MetadataKey(rec.ID), value)
	metrics.IncMetadataWrite(err)
	if err != nil {
		return fmt.Errorf("persist %s: %w", rec.ID, err)
	}

	s.logger.Debug().Str("id", rec.ID).Str("file", rec.FileName).Msg("recording persisted")
	return nil
}

// LoadAll reads every stored descriptor and resolves each retrieval address
// from object storage.
//
// The result is sorted by ID and built fresh on every call. When some
// addresses cannot be resolved the affected recordings keep an empty
// DownloadURL and the returned error is a *ResolveError; the slice is still
// complete. A record that does not decode keeps the file name derived from
// its ID and is reported in the same *ResolveError. A failure to read the collection returns a nil slice.
func (s *Store) LoadAll(ctx context.Context) ([]model.Recording, error) {
	snap, err := s.kv.ReadAll(ctx, model.RecordingsPrefix)
	if err != nil {
		return nil, fmt.Errorf("load recordings: %w", err)
	}

	keys := snap.Keys()
	recs := make([]model.Recording, 0, len(keys))
	failures := make([]error, len(keys))
	for i, id := range keys {
		raw, _ := snap.Child(id)
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			failures[i] = fmt.Errorf("decode record: %w", err)
		}
		fileName := r.FileName
		if fileName == "" {
			fileName = model.FileNameFor(id)
		}
		recs = append(recs, model.Recording{ID: id, FileName: fileName})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range recs {
		g.Go(func() error {
			url, err := s.objects.DownloadURL(gctx, model.ObjectKey(recs[i].FileName))
			metrics.IncAddressResolution(err)
			if err != nil {
				if failures[i] != nil {
					err = errors.Join(failures[i], err)
				}
				failures[i] = err
				return nil
			}
			recs[i].DownloadURL = url
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordRecordingsListed(len(recs))

	var resolveErr *ResolveError
	for i, err := range failures {
		if err == nil {
			continue
		}
		if resolveErr == nil {
			resolveErr = &ResolveError{}
		}
		resolveErr.Failures = append(resolveErr.Failures, ItemError{ID: recs[i].ID, Err: err})
		s.logger.Warn().Err(err).Str("id", recs[i].ID).Msg("failed to load recording")
	}

	s.logger.Debug().Int("count", len(recs)).Msg("recordings loaded")

	if resolveErr != nil {
		return recs, resolveErr
	}
	return recs, nil
}

// Close releases the KV backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
