package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/storage"
)

type failingKV struct {
	*MemoryKV
	writeErr error
	readErr  error
}

func (f *failingKV) Write(ctx context.Context, path string, value []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryKV.Write(ctx, path, value)
}

func (f *failingKV) ReadAll(ctx context.Context, path string) (Snapshot, error) {
	if f.readErr != nil {
		return Snapshot{}, f.readErr
	}
	return f.MemoryKV.ReadAll(ctx, path)
}

func uploadObject(t *testing.T, store storage.ObjectStore, fileName string) {
	t.Helper()
	task := storage.NewUploadTask(store, model.ObjectKey(fileName), []byte("frames"), model.DefaultContentType, 0)
	_, err := task.Run(context.Background(), nil)
	require.NoError(t, err)
}

func TestStore_PersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			objects := storage.NewMemoryStore()
			store := NewStore(kv, objects, 0, zerolog.Nop())

			rec := model.NewRecording()
			uploadObject(t, objects, rec.FileName)
			rec.DownloadURL = "memory://" + model.ObjectKey(rec.FileName)
			require.NoError(t, store.Persist(ctx, rec))

			recs, err := store.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, rec, recs[0])
		})
	}
}

func TestStore_LoadAllEmpty(t *testing.T) {
	store := NewStore(NewMemoryKV(), storage.NewMemoryStore(), 0, zerolog.Nop())

	recs, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestStore_LoadAllIsFreshAndSorted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	objects := storage.NewMemoryStore()
	store := NewStore(NewMemoryKV(), objects, 2, zerolog.Nop())

	var ids []string
	for i := 0; i < 10; i++ {
		rec := model.NewRecording()
		ids = append(ids, rec.ID)
		uploadObject(t, objects, rec.FileName)
		require.NoError(t, store.Persist(ctx, rec))
	}

	first, err := store.LoadAll(ctx)
	require.NoError(t, err)
	second, err := store.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, first, 10)
	assert.Equal(t, first, second)
	for i, rec := range first {
		assert.Equal(t, ids[i], rec.ID)
		assert.Equal(t, model.FileNameFor(rec.ID), rec.FileName)
		assert.True(t, rec.HasAddress())
	}

	first[0].DownloadURL = "mutated"
	assert.NotEqual(t, "mutated", second[0].DownloadURL)
}

func TestStore_LoadAllPartialFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	objects := storage.NewMemoryStore()
	store := NewStore(NewMemoryKV(), objects, 0, zerolog.Nop())

	var recs []model.Recording
	for i := 0; i < 3; i++ {
		rec := model.NewRecording()
		require.NoError(t, store.Persist(ctx, rec))
		recs = append(recs, rec)
	}
	// Only the first and last objects exist.
	uploadObject(t, objects, recs[0].FileName)
	uploadObject(t, objects, recs[2].FileName)

	got, err := store.LoadAll(ctx)
	require.Error(t, err)
	require.Len(t, got, 3)

	var resolveErr *ResolveError
	require.True(t, errors.As(err, &resolveErr))
	require.Len(t, resolveErr.Failures, 1)
	assert.Equal(t, recs[1].ID, resolveErr.Failures[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.True(t, got[0].HasAddress())
	assert.False(t, got[1].HasAddress())
	assert.True(t, got[2].HasAddress())
}

func TestStore_LoadAllKeepsUndecodableRecords(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	objects := storage.NewMemoryStore()
	store := NewStore(kv, objects, 0, zerolog.Nop())

	require.NoError(t, kv.Write(ctx, "recordings/recording-x", []byte(`{}`)))
	require.NoError(t, kv.Write(ctx, "recordings/broken", []byte(`not json`)))
	uploadObject(t, objects, "recording-x.mp4")
	uploadObject(t, objects, "broken.mp4")

	recs, err := store.LoadAll(ctx)
	require.Len(t, recs, 2)
	assert.Equal(t, "broken", recs[0].ID)
	assert.Equal(t, "broken.mp4", recs[0].FileName)
	assert.True(t, recs[0].HasAddress(), "undecodable record still resolves its address")
	assert.Equal(t, "recording-x.mp4", recs[1].FileName)
	assert.True(t, recs[1].HasAddress())

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	require.Len(t, resolveErr.Failures, 1)
	assert.Equal(t, "broken", resolveErr.Failures[0].ID)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestStore_LoadAllUndecodableAndMissingObject(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, storage.NewMemoryStore(), 0, zerolog.Nop())

	require.NoError(t, kv.Write(ctx, "recordings/broken", []byte(`not json`)))

	recs, err := store.LoadAll(ctx)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].HasAddress())

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	require.Len(t, resolveErr.Failures, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

// countingStore tracks how many DownloadURL calls run at once.
type countingStore struct {
	*storage.MemoryStore
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *countingStore) DownloadURL(ctx context.Context, key string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return s.MemoryStore.DownloadURL(ctx, key)
}

func TestStore_LoadAllBoundsConcurrentLookups(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"explicit limit", 3, 3},
		{"default limit", 0, DefaultResolveConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			objects := &countingStore{MemoryStore: storage.NewMemoryStore()}
			store := NewStore(kv, objects, tt.limit, zerolog.Nop())

			for range 20 {
				rec := model.NewRecording()
				uploadObject(t, objects.MemoryStore, rec.FileName)
				require.NoError(t, store.Persist(ctx, rec))
			}

			recs, err := store.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 20)

			peak := int(objects.peak.Load())
			assert.LessOrEqual(t, peak, tt.want)
			assert.Greater(t, peak, 1, "lookups should run in parallel")
		})
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")

	t.Run("persist", func(t *testing.T) {
		store := NewStore(&failingKV{MemoryKV: NewMemoryKV(), writeErr: boom}, storage.NewMemoryStore(), 0, zerolog.Nop())
		err := store.Persist(ctx, model.NewRecording())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("persist empty id", func(t *testing.T) {
		store := NewStore(NewMemoryKV(), storage.NewMemoryStore(), 0, zerolog.Nop())
		assert.Error(t, store.Persist(ctx, model.Recording{}))
	})

	t.Run("load", func(t *testing.T) {
		store := NewStore(&failingKV{MemoryKV: NewMemoryKV(), readErr: boom}, storage.NewMemoryStore(), 0, zerolog.Nop())
		recs, err := store.LoadAll(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, recs)
	})
}

func TestResolveError_Message(t *testing.T) {
	err := &ResolveError{Failures: []ItemError{
		{ID: "a", Err: fmt.Errorf("x")},
		{ID: "b", Err: fmt.Errorf("y")},
	}}
	assert.Equal(t, "resolve address: 2 recordings failed: a: x; b: y", err.Error())
}
