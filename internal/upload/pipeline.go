package upload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/screen-recorder/internal/capture"
	ioutils "github.com/handiism/screen-recorder/internal/io"
	"github.com/handiism/screen-recorder/internal/library"
	"github.com/handiism/screen-recorder/internal/metrics"
	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/storage"
)

// ErrEmptyRecording is returned by Save for a capture without any bytes.
var ErrEmptyRecording = errors.New("recording is empty")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent represents an upload progress update. Percent is only
// meaningful for events emitted while bytes are transferred.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
	Percent float64
}

// Persister records a saved recording's descriptor.
type Persister interface {
	Persist(ctx context.Context, rec model.Recording) error
}

// FrameExtractor decodes one frame of a recording as an image.
type FrameExtractor func(ctx context.Context, video []byte) ([]byte, error)

// Options tunes a Pipeline.
type Options struct {
	// ChunkSize is the number of bytes sent per upload request.
	// Non-positive sends the recording in one request.
	ChunkSize int

	// ExtractFrame enables poster frame thumbnails when set.
	ExtractFrame     FrameExtractor
	ThumbnailMaxSize int
}

// Pipeline turns a finished capture into a stored, persisted recording.
type Pipeline struct {
	store     storage.ObjectStore
	persister Persister
	library   *library.Library
	images    *ioutils.ImageService
	opts      Options
	logger    zerolog.Logger

	newRecording func() model.Recording

	transferred atomic.Int64
	total       atomic.Int64

	onProgress func(ProgressEvent)
}

// NewPipeline creates a Pipeline. lib may be nil when no view needs updating.
func NewPipeline(store storage.ObjectStore, persister Persister, lib *library.Library, opts Options, onProgress func(ProgressEvent), logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:        store,
		persister:    persister,
		library:      lib,
		images:       ioutils.NewImageService(),
		opts:         opts,
		logger:       logger,
		newRecording: model.NewRecording,
		onProgress:   onProgress,
	}
}

// SetProgressHandler replaces the progress callback.
func (p *Pipeline) SetProgressHandler(onProgress func(ProgressEvent)) {
	p.onProgress = onProgress
}

// GetProgress returns the byte counters of the most recent upload.
func (p *Pipeline) GetProgress() (transferred, total int64) {
	return p.transferred.Load(), p.total.Load()
}

// Save uploads the capture as one object, persists its descriptor and
// appends it to the library.
//
// Nothing is uploaded or persisted for an empty capture. When the upload
// fails no descriptor is persisted and the error is returned; the capture
// is not kept for a later attempt.
func (p *Pipeline) Save(ctx context.Context, c capture.Capture) (model.Recording, error) {
	if len(c.Chunks) == 0 || c.Empty() {
		metrics.IncEmptyRecording()
		p.progress(ProgressEvent{Message: "Nothing was recorded, skipping upload", Level: LevelWarning})
		return model.Recording{}, ErrEmptyRecording
	}

	data := c.Bytes()
	contentType := c.MIMEType
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	rec := p.newRecording()
	key := model.ObjectKey(rec.FileName)
	logger := p.logger.With().Str("id", rec.ID).Str("key", key).Logger()

	p.transferred.Store(0)
	p.total.Store(int64(len(data)))
	p.progress(ProgressEvent{Message: fmt.Sprintf("Uploading %s (%d bytes)", rec.FileName, len(data)), Level: LevelInfo})

	started := time.Now()
	task := storage.NewUploadTask(p.store, key, data, contentType, p.opts.ChunkSize)
	info, err := task.Run(ctx, func(s storage.Snapshot) {
		p.transferred.Store(s.BytesTransferred)
		p.progress(ProgressEvent{
			Message: fmt.Sprintf("Upload is %.0f%% done", s.Percent()),
			Level:   LevelVerbose,
			Percent: s.Percent(),
		})
	})
	metrics.RecordUpload(info.Size, time.Since(started).Seconds(), err)
	if err != nil {
		logger.Error().Err(err).Msg("upload failed")
		p.progress(ProgressEvent{Message: fmt.Sprintf("Upload of %s failed: %v", rec.FileName, err), Level: LevelError})
		return model.Recording{}, fmt.Errorf("upload %s: %w", rec.FileName, err)
	}

	url, err := p.store.DownloadURL(ctx, info.Key)
	if err != nil {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Could not resolve address of %s: %v", rec.FileName, err), Level: LevelError})
		return model.Recording{}, fmt.Errorf("resolve address of %s: %w", rec.FileName, err)
	}
	rec.DownloadURL = url

	if err := p.persister.Persist(ctx, rec); err != nil {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Could not save metadata of %s: %v", rec.FileName, err), Level: LevelError})
		return model.Recording{}, fmt.Errorf("persist %s: %w", rec.ID, err)
	}

	if p.library != nil {
		p.library.Append(rec)
	}

	if p.opts.ExtractFrame != nil {
		if err := p.saveThumbnail(ctx, rec, data); err != nil {
			metrics.IncThumbnailFailure()
			logger.Warn().Err(err).Msg("thumbnail skipped")
			p.progress(ProgressEvent{Message: fmt.Sprintf("No thumbnail for %s: %v", rec.FileName, err), Level: LevelWarning})
		}
	}

	logger.Info().Int64("bytes", info.Size).Str("url", url).Msg("recording saved")
	p.progress(ProgressEvent{Message: fmt.Sprintf("Saved %s", rec.FileName), Level: LevelSuccess, Percent: 100})
	return rec, nil
}

func (p *Pipeline) saveThumbnail(ctx context.Context, rec model.Recording, video []byte) error {
	frame, err := p.opts.ExtractFrame(ctx, video)
	if err != nil {
		return err
	}
	thumb, err := p.images.Thumbnail(ctx, frame, p.opts.ThumbnailMaxSize)
	if err != nil {
		return err
	}
	task := storage.NewUploadTask(p.store, model.ThumbnailKey(rec.ID), thumb, "image/jpeg", 0)
	if _, err := task.Run(ctx, nil); err != nil {
		return err
	}
	p.progress(ProgressEvent{Message: fmt.Sprintf("Uploaded thumbnail for %s", rec.FileName), Level: LevelVerbose})
	return nil
}

func (p *Pipeline) progress(event ProgressEvent) {
	if p.onProgress != nil {
		p.onProgress(event)
	}
}
