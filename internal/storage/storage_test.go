package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]ObjectStore {
	t.Helper()

	fsStore, err := NewFSStore(t.TempDir(), "")
	require.NoError(t, err)

	return map[string]ObjectStore{
		"fs":     fsStore,
		"memory": NewMemoryStore(),
	}
}

func TestUploadTask_RoundTrip(t *testing.T) {
	ctx := context.Background()
	data := bytes.Repeat([]byte("0123456789"), 100)

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			var snapshots []Snapshot
			task := NewUploadTask(store, "recordings/rec.mp4", data, "video/mp4", 300)

			info, err := task.Run(ctx, func(s Snapshot) { snapshots = append(snapshots, s) })
			require.NoError(t, err)
			assert.Equal(t, "recordings/rec.mp4", info.Key)
			assert.Equal(t, int64(len(data)), info.Size)

			// 300+300+300+100 bytes, then the commit.
			require.Len(t, snapshots, 5)
			assert.InDelta(t, 30.0, snapshots[0].Percent(), 0.001)
			assert.Equal(t, TaskSucceeded, snapshots[4].State)
			assert.InDelta(t, 100.0, snapshots[4].Percent(), 0.001)
			assert.Equal(t, TaskSucceeded, task.Snapshot().State)

			rc, got, err := store.Open(ctx, "recordings/rec.mp4")
			require.NoError(t, err)
			defer rc.Close()
			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, data, body)
			assert.Equal(t, "video/mp4", got.ContentType)

			url, err := store.DownloadURL(ctx, "recordings/rec.mp4")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(url, "recordings/rec.mp4"), url)
		})
	}
}

func TestObjectStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.DownloadURL(ctx, "recordings/missing.mp4")
			assert.ErrorIs(t, err, ErrNotFound)

			_, _, err = store.Open(ctx, "recordings/missing.mp4")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestObjectStore_UncommittedIsInvisible(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.CreateSession(ctx, "recordings/partial.mp4", "video/mp4", 10)
			require.NoError(t, err)
			_, err = store.WriteChunk(ctx, id, 0, []byte("01234"))
			require.NoError(t, err)

			_, err = store.DownloadURL(ctx, "recordings/partial.mp4")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Commit(ctx, id)
			assert.ErrorIs(t, err, ErrIncomplete)
		})
	}
}

func TestObjectStore_OffsetMismatch(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.CreateSession(ctx, "recordings/a.mp4", "video/mp4", 10)
			require.NoError(t, err)

			committed, err := store.WriteChunk(ctx, id, 3, []byte("abc"))
			assert.ErrorIs(t, err, ErrOffsetMismatch)
			assert.Equal(t, int64(0), committed)

			_, err = store.WriteChunk(ctx, "no-such-session", 0, []byte("abc"))
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

// flakyStore fails the WriteChunk call with the given ordinal once.
type flakyStore struct {
	ObjectStore
	failOn int
	calls  int
}

var errInjected = errors.New("injected network failure")

func (f *flakyStore) WriteChunk(ctx context.Context, id string, offset int64, p []byte) (int64, error) {
	f.calls++
	if f.calls == f.failOn {
		return offset, errInjected
	}
	return f.ObjectStore.WriteChunk(ctx, id, offset, p)
}

func TestUploadTask_ResumesFromCommittedOffset(t *testing.T) {
	ctx := context.Background()
	data := []byte("abcdefghijklmnopqrstuvwxyz")

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			flaky := &flakyStore{ObjectStore: store, failOn: 3}
			task := NewUploadTask(flaky, "recordings/resume.mp4", data, "video/mp4", 5)

			_, err := task.Run(ctx, nil)
			require.ErrorIs(t, err, errInjected)
			snap := task.Snapshot()
			assert.Equal(t, TaskFailed, snap.State)
			assert.Equal(t, int64(10), snap.BytesTransferred)

			var first Snapshot
			_, err = task.Run(ctx, func(s Snapshot) {
				if first.TotalBytes == 0 {
					first = s
				}
			})
			require.NoError(t, err)
			assert.Equal(t, int64(15), first.BytesTransferred, "resume should continue after the committed 10 bytes")

			rc, _, err := store.Open(ctx, "recordings/resume.mp4")
			require.NoError(t, err)
			defer rc.Close()
			body, _ := io.ReadAll(rc)
			assert.Equal(t, data, body)
		})
	}
}

func TestUploadTask_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := NewUploadTask(NewMemoryStore(), "recordings/c.mp4", []byte("data"), "video/mp4", 2)
	_, err := task.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSStore_BaseURLAndLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSStore(root, "http://127.0.0.1:8477/objects")
	require.NoError(t, err)

	_, err = NewUploadTask(store, "recordings/x.mp4", []byte("video"), "video/mp4", 0).Run(ctx, nil)
	require.NoError(t, err)

	url, err := store.DownloadURL(ctx, "recordings/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8477/objects/recordings/x.mp4", url)

	_, err = os.Stat(filepath.Join(root, "recordings", "x.mp4"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, uploadsDir))
	require.NoError(t, err)
	assert.Empty(t, entries, "committed sessions should leave no partial files")
}

func TestFSStore_FileURLWithoutBase(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = NewUploadTask(store, "recordings/y.mp4", []byte("video"), "video/mp4", 0).Run(ctx, nil)
	require.NoError(t, err)

	url, err := store.DownloadURL(ctx, "recordings/y.mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), url)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"recordings/a.mp4", "recordings/a.mp4", false},
		{"recordings//a.mp4", "recordings/a.mp4", false},
		{"", "", true},
		{"/etc/passwd", "", true},
		{"../outside", "", true},
		{"recordings/../../outside", "", true},
		{`recordings\a.mp4`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"recordings/a.mp4":  "video/mp4",
		"demo.WEBM":         "video/webm",
		"thumbnails/a.jpg":  "image/jpeg",
		"list.json":         "application/json",
		"recordings/no-ext": "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}
