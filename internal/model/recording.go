package model

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	// IDPrefix starts every generated recording identifier.
	IDPrefix = "recording-"

	// FileExtension is appended to the identifier to form the file name.
	FileExtension = ".mp4"

	// DefaultContentType tags uploaded recordings when the capture source
	// does not report a MIME type of its own.
	DefaultContentType = "video/mp4"

	// RecordingsPrefix namespaces both uploaded objects and metadata records.
	RecordingsPrefix = "recordings/"

	// ThumbnailsPrefix namespaces poster frames uploaded next to recordings.
	ThumbnailsPrefix = "thumbnails/"
)

// Recording is the descriptor of one saved screen recording.
//
// A Recording is created when a capture stops and is about to be uploaded,
// persisted once the upload succeeds, and reconstructed from the metadata
// store when the list of recordings is loaded. There is no update or delete
// path.
//
// Example:
//
//	rec := NewRecording()
//	// rec.ID       = "recording-0190f3a2-..."
//	// rec.FileName = "recording-0190f3a2-....mp4"
type Recording struct {
	// ID is the unique, timestamp-derived identifier of the recording.
	ID string `json:"id"`

	// FileName is always FileNameFor(ID).
	FileName string `json:"fileName"`

	// DownloadURL is the retrieval address of the uploaded object.
	// Empty until the upload or the address resolution has completed.
	DownloadURL string `json:"downloadURL,omitempty"`
}

// NewID returns a new recording identifier.
//
// Identifiers embed a UUIDv7, whose leading 48 bits are the Unix time in
// milliseconds followed by random bits. Two identifiers generated within the
// same millisecond therefore still differ, and lexical order follows
// creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails.
		id = uuid.New()
	}
	return IDPrefix + id.String()
}

// FileNameFor derives the object file name from a recording identifier.
func FileNameFor(id string) string {
	return id + FileExtension
}

// NewRecording creates a descriptor with a fresh ID and its file name.
// DownloadURL is left empty.
func NewRecording() Recording {
	id := NewID()
	return Recording{
		ID:       id,
		FileName: FileNameFor(id),
	}
}

// HasAddress reports whether the recording has a resolved retrieval address.
func (r Recording) HasAddress() bool {
	return r.DownloadURL != ""
}

// ObjectKey returns the object storage key for a recording file name.
func ObjectKey(fileName string) string {
	return RecordingsPrefix + fileName
}

// MetadataKey returns the key-value store path for a recording identifier.
func MetadataKey(id string) string {
	return RecordingsPrefix + id
}

// ThumbnailKey returns the object storage key of a recording's poster frame.
func ThumbnailKey(id string) string {
	return ThumbnailsPrefix + id + ".jpg"
}

// IDFromFileName strips the extension from a file name produced by
// FileNameFor. The boolean is false when the name does not carry it.
func IDFromFileName(fileName string) (string, bool) {
	base := path.Base(fileName)
	if !strings.HasSuffix(base, FileExtension) {
		return "", false
	}
	return strings.TrimSuffix(base, FileExtension), true
}
