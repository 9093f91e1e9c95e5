package metadata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackends(t *testing.T) map[string]KV {
	t.Helper()

	mr := miniredis.RunT(t)
	redisKV := newRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", zerolog.Nop())

	badgerKV, err := OpenBadgerKVInMemory()
	require.NoError(t, err)

	sqliteKV, err := OpenSQLiteKV(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)

	backends := map[string]KV{
		"memory": NewMemoryKV(),
		"redis":  redisKV,
		"badger": badgerKV,
		"sqlite": sqliteKV,
	}
	t.Cleanup(func() {
		for _, kv := range backends {
			_ = kv.Close()
		}
	})
	return backends
}

func TestKV_ReadAllDirectChildren(t *testing.T) {
	ctx := context.Background()

	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Write(ctx, "recordings/b", []byte("2")))
			require.NoError(t, kv.Write(ctx, "recordings/a", []byte("1")))
			require.NoError(t, kv.Write(ctx, "recordings/a/nested", []byte("x")))
			require.NoError(t, kv.Write(ctx, "recordingsx/c", []byte("x")))
			require.NoError(t, kv.Write(ctx, "other/d", []byte("x")))

			snap, err := kv.ReadAll(ctx, "recordings")
			require.NoError(t, err)
			assert.True(t, snap.Exists())
			assert.Equal(t, "recordings/", snap.Path())
			assert.Equal(t, []string{"a", "b"}, snap.Keys())

			v, ok := snap.Child("a")
			require.True(t, ok)
			assert.Equal(t, []byte("1"), v)
		})
	}
}

func TestKV_LastWriteWins(t *testing.T) {
	ctx := context.Background()

	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Write(ctx, "recordings/a", []byte("first")))
			require.NoError(t, kv.Write(ctx, "/recordings/a/", []byte("second")))

			snap, err := kv.ReadAll(ctx, "recordings/")
			require.NoError(t, err)
			assert.Len(t, snap.Value(), 1)
			v, _ := snap.Child("a")
			assert.Equal(t, []byte("second"), v)
		})
	}
}

func TestKV_EmptyCollection(t *testing.T) {
	ctx := context.Background()

	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			snap, err := kv.ReadAll(ctx, "recordings/")
			require.NoError(t, err)
			assert.False(t, snap.Exists())
			assert.Empty(t, snap.Keys())
		})
	}
}

func TestKV_InvalidPath(t *testing.T) {
	ctx := context.Background()

	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"", "/", "recordings//a", "recordings/../a"} {
				assert.Error(t, kv.Write(ctx, p, []byte("x")), "path %q", p)
			}
		})
	}
}

func TestDirectChild(t *testing.T) {
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"recordings/a", "a", true},
		{"recordings/", "", false},
		{"recordings/a/b", "", false},
		{"recordingsa", "", false},
		{"other/a", "", false},
	}

	for _, tt := range tests {
		got, ok := directChild("recordings/", tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("directChild(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}
