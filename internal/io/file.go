package ioutils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
)

var (
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	runsOfSpace      = regexp.MustCompile(`\s+`)
)

// ReadFile reads a local video file, refusing files larger than maxBytes
// when maxBytes is positive.
//
// Example:
//
//	data, err := ReadFile(ctx, "/tmp/demo.mp4", 2<<30)
func ReadFile(ctx context.Context, path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), maxBytes)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, so readers never observe a partially written file. Parent
// directories are created as needed.
//
// Example:
//
//	err := WriteFileAtomic(ctx, "/recordings/list.m3u", []byte("#EXTM3U\n"))
func WriteFileAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}

// CreateAtomic opens a pending file that replaces path only when
// CloseAtomicallyReplace is called. Callers must Cleanup on failure.
//
// Example:
//
//	f, err := CreateAtomic("/downloads/recording-1.mp4")
//	defer f.Cleanup()
//	io.Copy(f, body)
//	f.CloseAtomicallyReplace()
func CreateAtomic(path string) (*renameio.PendingFile, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return renameio.NewPendingFile(path, renameio.WithPermissions(0644))
}

// SanitizeFileName removes or replaces characters that are invalid in file names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("demo: take 1/2")  // Returns "demo_ take 1_2"
//	SanitizeFileName("recording...")    // Returns "recording"
func SanitizeFileName(name string) string {
	name = invalidNameChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = runsOfSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
