package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// KV is a remote key-value store addressed by '/'-delimited paths.
type KV interface {
	// Write stores value under path, replacing any previous value.
	Write(ctx context.Context, path string, value []byte) error

	// ReadAll returns every direct child of path.
	ReadAll(ctx context.Context, path string) (Snapshot, error)

	Close() error
}

// Snapshot is the result of reading a collection from a KV store.
type Snapshot struct {
	path     string
	children map[string][]byte
}

// NewSnapshot builds a snapshot of the children of path.
func NewSnapshot(path string, children map[string][]byte) Snapshot {
	return Snapshot{path: normalizeCollection(path), children: children}
}

// Path returns the collection path the snapshot was read from.
func (s Snapshot) Path() string {
	return s.path
}

// Exists reports whether the collection holds at least one child.
func (s Snapshot) Exists() bool {
	return len(s.children) > 0
}

// Value returns the children keyed by their name relative to Path.
func (s Snapshot) Value() map[string][]byte {
	return s.children
}

// Keys returns the child names in ascending order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.children))
	for k := range s.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Child returns the raw value of one child.
func (s Snapshot) Child(key string) ([]byte, bool) {
	v, ok := s.children[key]
	return v, ok
}

// normalizeCollection turns "recordings", "/recordings" and "recordings/"
// into "recordings/".
func normalizeCollection(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	return path + "/"
}

// validatePath rejects empty paths and empty segments.
func validatePath(path string) (string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", fmt.Errorf("empty key path")
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid key path %q", path)
		}
	}
	return trimmed, nil
}

// directChild returns the child name of key below collection, or false when
// key is outside the collection or nested deeper than one level.
func directChild(collection, key string) (string, bool) {
	if !strings.HasPrefix(key, collection) {
		return "", false
	}
	name := strings.TrimPrefix(key, collection)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
