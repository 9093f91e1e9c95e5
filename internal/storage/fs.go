package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

const uploadsDir = ".uploads"

// knownTypes covers extensions missing from mime's builtin table.
var knownTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".jpg":  "image/jpeg",
}

// ContentTypeFor guesses the MIME type of a key or file name from its
// extension, defaulting to application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// sessionManifest is persisted next to a session's partial data so that an
// upload can be resumed by another process.
type sessionManifest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// FSStore keeps objects as files below a root directory.
//
// Partial uploads live under <root>/.uploads as a data file plus a JSON
// manifest written atomically. Commit moves the data file to <root>/<key>,
// so readers never observe a half-written object.
//
// Retrieval addresses are <BaseURL>/<key> when a base URL is configured
// (typically the /objects route of the built-in HTTP server) and file://
// URLs otherwise.
type FSStore struct {
	root    string
	baseURL string

	mu sync.Mutex
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, uploadsDir), 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("invalid storage base URL: %w", err)
		}
	}
	return &FSStore{root: abs, baseURL: baseURL}, nil
}

// Root returns the absolute storage directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) objectPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FSStore) partPath(sessionID string) string {
	return filepath.Join(s.root, uploadsDir, sessionID+".part")
}

func (s *FSStore) manifestPath(sessionID string) string {
	return filepath.Join(s.root, uploadsDir, sessionID+".json")
}

func (s *FSStore) CreateSession(ctx context.Context, key, contentType string, size int64) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	manifest, err := json.Marshal(sessionManifest{Key: key, ContentType: contentType, Size: size})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.partPath(id), nil, 0644); err != nil {
		return "", fmt.Errorf("creating part file: %w", err)
	}
	if err := renameio.WriteFile(s.manifestPath(id), manifest, 0644); err != nil {
		_ = os.Remove(s.partPath(id))
		return "", fmt.Errorf("writing session manifest: %w", err)
	}
	return id, nil
}

func (s *FSStore) readManifest(sessionID string) (sessionManifest, error) {
	var m sessionManifest
	if _, err := uuid.Parse(sessionID); err != nil {
		return m, ErrSessionNotFound
	}
	data, err := os.ReadFile(s.manifestPath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return m, ErrSessionNotFound
	}
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("reading session manifest: %w", err)
	}
	return m, nil
}

func (s *FSStore) WriteChunk(ctx context.Context, sessionID string, offset int64, p []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readManifest(sessionID); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(s.partPath(sessionID), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() != offset {
		return info.Size(), ErrOffsetMismatch
	}

	n, err := f.Write(p)
	if err != nil {
		return offset + int64(n), err
	}
	if err := f.Sync(); err != nil {
		return offset + int64(n), err
	}
	return offset + int64(n), nil
}

func (s *FSStore) Offset(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readManifest(sessionID); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.partPath(sessionID))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FSStore) Commit(ctx context.Context, sessionID string) (ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest(sessionID)
	if err != nil {
		return ObjectInfo{}, err
	}

	part := s.partPath(sessionID)
	info, err := os.Stat(part)
	if err != nil {
		return ObjectInfo{}, err
	}
	if info.Size() != m.Size {
		return ObjectInfo{}, ErrIncomplete
	}

	dst := s.objectPath(m.Key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.Rename(part, dst); err != nil {
		return ObjectInfo{}, fmt.Errorf("publishing %s: %w", m.Key, err)
	}
	_ = os.Remove(s.manifestPath(sessionID))

	final, err := os.Stat(dst)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:         m.Key,
		Size:        final.Size(),
		ContentType: m.ContentType,
		ModTime:     final.ModTime(),
	}, nil
}

func (s *FSStore) stat(key string) (string, ObjectInfo, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", ObjectInfo{}, err
	}
	if key == uploadsDir || strings.HasPrefix(key, uploadsDir+"/") {
		return "", ObjectInfo{}, ErrNotFound
	}

	p := s.objectPath(key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return "", ObjectInfo{}, err
	}

	return p, ObjectInfo{Key: key, Size: info.Size(), ContentType: ContentTypeFor(key), ModTime: info.ModTime()}, nil
}

func (s *FSStore) DownloadURL(ctx context.Context, key string) (string, error) {
	p, info, err := s.stat(key)
	if err != nil {
		return "", err
	}
	if s.baseURL != "" {
		return url.JoinPath(s.baseURL, info.Key)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String(), nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	p, info, err := s.stat(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return f, info, nil
}
