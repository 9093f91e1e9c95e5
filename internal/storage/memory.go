package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memorySession struct {
	key         string
	contentType string
	size        int64
	buf         []byte
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStore is an in-process ObjectStore. Retrieval addresses use the
// memory:// scheme and are only meaningful inside the same process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	objects  map[string]memoryObject
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		objects:  make(map[string]memoryObject),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, key, contentType string, size int64) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &memorySession{key: key, contentType: contentType, size: size}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) WriteChunk(ctx context.Context, sessionID string, offset int64, p []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if offset != int64(len(sess.buf)) {
		return int64(len(sess.buf)), ErrOffsetMismatch
	}
	sess.buf = append(sess.buf, p...)
	return int64(len(sess.buf)), nil
}

func (s *MemoryStore) Offset(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return int64(len(sess.buf)), nil
}

func (s *MemoryStore) Commit(ctx context.Context, sessionID string) (ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ObjectInfo{}, ErrSessionNotFound
	}
	if int64(len(sess.buf)) != sess.size {
		return ObjectInfo{}, ErrIncomplete
	}

	info := ObjectInfo{
		Key:         sess.key,
		Size:        sess.size,
		ContentType: sess.contentType,
		ModTime:     s.now(),
	}
	s.objects[sess.key] = memoryObject{data: sess.buf, info: info}
	delete(s.sessions, sessionID)
	return info, nil
}

func (s *MemoryStore) DownloadURL(ctx context.Context, key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	_, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}
	return "memory://" + key, nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, ObjectInfo{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}
