package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no committed object exists under a key.
	ErrNotFound = errors.New("object not found")

	// ErrSessionNotFound is returned for unknown or already committed upload sessions.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrOffsetMismatch is returned when a chunk does not start at the
	// session's committed offset.
	ErrOffsetMismatch = errors.New("chunk offset does not match committed offset")

	// ErrIncomplete is returned when committing a session before all bytes arrived.
	ErrIncomplete = errors.New("upload session is incomplete")
)

// ObjectInfo describes a committed object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ObjectStore is a resumable object storage backend.
//
// An upload is a session: bytes are appended chunk by chunk at the
// committed offset, and the object only becomes visible under its key once
// the session is committed. A client that lost track of a session asks for
// its Offset and continues from there.
type ObjectStore interface {
	// CreateSession opens an upload session for size bytes under key.
	CreateSession(ctx context.Context, key, contentType string, size int64) (string, error)

	// WriteChunk appends p at offset and returns the new committed offset.
	WriteChunk(ctx context.Context, sessionID string, offset int64, p []byte) (int64, error)

	// Offset returns the number of bytes committed to the session so far.
	Offset(ctx context.Context, sessionID string) (int64, error)

	// Commit publishes the session's bytes under its key.
	Commit(ctx context.Context, sessionID string) (ObjectInfo, error)

	// DownloadURL resolves the public retrieval address of a committed object.
	DownloadURL(ctx context.Context, key string) (string, error)

	// Open streams a committed object.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}

// CleanKey validates an object key and returns its canonical form.
// Keys are relative, '/'-delimited and may not escape the store root.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
