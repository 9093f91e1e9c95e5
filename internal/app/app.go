package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/handiism/screen-recorder/internal/capture"
	"github.com/handiism/screen-recorder/internal/config"
	apphttp "github.com/handiism/screen-recorder/internal/http"
	ioutils "github.com/handiism/screen-recorder/internal/io"
	"github.com/handiism/screen-recorder/internal/library"
	"github.com/handiism/screen-recorder/internal/logging"
	"github.com/handiism/screen-recorder/internal/metadata"
	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/playlist"
	"github.com/handiism/screen-recorder/internal/storage"
	"github.com/handiism/screen-recorder/internal/upload"
)

var (
	// ErrUnknownRecording is returned by Fetch for an id that is not stored.
	ErrUnknownRecording = errors.New("unknown recording")

	// ErrRecorderBusy is returned by Start while another process records
	// with the same lock file.
	ErrRecorderBusy = errors.New("another recorder is running")
)

// maxUploadFileBytes bounds files passed to UploadFile, which are held in
// memory while uploading.
const maxUploadFileBytes = 4 << 30

// App owns one set of backends for the lifetime of the process.
type App struct {
	settings *config.Settings
	logger   zerolog.Logger

	objects  storage.ObjectStore
	store    *metadata.Store
	library  *library.Library
	capture  *capture.Controller
	pipeline *upload.Pipeline
	client   *apphttp.Client
	lock     *flock.Flock // nil when lock_path is empty
}

// Backends are the pluggable parts of an App.
type Backends struct {
	Objects storage.ObjectStore
	KV      metadata.KV
	Source  capture.Source
}

// New opens the backends selected by settings and wires the application.
func New(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	objects, err := OpenObjectStore(settings)
	if err != nil {
		return nil, err
	}
	kv, err := OpenKV(ctx, settings, logging.WithComponent(logger, "metadata"))
	if err != nil {
		return nil, err
	}

	source := &capture.FFmpegSource{
		Path:      settings.FFmpegPath,
		Display:   settings.CaptureDisplay,
		Audio:     settings.CaptureAudio,
		FrameRate: settings.CaptureFrameRate,
		ChunkSize: settings.CaptureChunkSize,
		Logger:    logging.WithComponent(logger, "ffmpeg"),
	}

	return NewWithBackends(settings, Backends{Objects: objects, KV: kv, Source: source}, logger), nil
}

// NewWithBackends wires an App over already opened backends.
func NewWithBackends(settings *config.Settings, b Backends, logger zerolog.Logger) *App {
	lib := library.New()
	store := metadata.NewStore(b.KV, b.Objects, settings.ResolveConcurrency, logging.WithComponent(logger, "metadata"))

	opts := upload.Options{
		ChunkSize:        settings.UploadChunkBytes,
		ThumbnailMaxSize: settings.ThumbnailMaxSize,
	}
	if settings.Thumbnails {
		ffmpegPath := settings.FFmpegPath
		opts.ExtractFrame = func(ctx context.Context, video []byte) ([]byte, error) {
			return capture.ExtractFrame(ctx, ffmpegPath, video)
		}
	}

	var lock *flock.Flock
	if settings.LockPath != "" {
		lock = flock.New(settings.LockPath)
	}

	return &App{
		settings: settings,
		logger:   logger,
		objects:  b.Objects,
		store:    store,
		library:  lib,
		capture:  capture.NewController(b.Source, logging.WithComponent(logger, "capture")),
		pipeline: upload.NewPipeline(b.Objects, store, lib, opts, nil, logging.WithComponent(logger, "upload")),
		client:   apphttp.NewClient(),
		lock:     lock,
	}
}

// OpenObjectStore opens the configured object storage backend.
func OpenObjectStore(settings *config.Settings) (storage.ObjectStore, error) {
	switch settings.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	case config.StorageFS:
		store, err := storage.NewFSStore(settings.StorageDir, settings.StorageBaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening object storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.StorageBackend)
	}
}

// OpenKV opens the configured metadata backend.
func OpenKV(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (metadata.KV, error) {
	switch settings.MetadataBackend {
	case config.MetadataMemory:
		return metadata.NewMemoryKV(), nil
	case config.MetadataSQLite:
		if err := ioutils.EnsureDir(filepath.Dir(settings.MetadataPath)); err != nil {
			return nil, err
		}
		return metadata.OpenSQLiteKV(settings.MetadataPath)
	case config.MetadataBadger:
		if err := ioutils.EnsureDir(settings.MetadataPath); err != nil {
			return nil, err
		}
		return metadata.OpenBadgerKV(settings.MetadataPath)
	case config.MetadataRedis:
		return metadata.NewRedisKV(ctx, metadata.RedisConfig{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", settings.MetadataBackend)
	}
}

// SetProgressHandler routes upload progress to fn.
func (a *App) SetProgressHandler(fn func(upload.ProgressEvent)) {
	a.pipeline.SetProgressHandler(fn)
}

// Objects returns the object store, for serving stored recordings.
func (a *App) Objects() storage.ObjectStore {
	return a.objects
}

// State returns the capture state.
func (a *App) State() capture.State {
	return a.capture.State()
}

// Buffered returns the number of chunks captured so far.
func (a *App) Buffered() int {
	return a.capture.Buffered()
}

// Start begins a recording. Only one process per lock file records at a
// time.
func (a *App) Start(ctx context.Context) error {
	if err := a.acquireLock(); err != nil {
		return err
	}
	if err := a.capture.Start(ctx); err != nil {
		if !errors.Is(err, capture.ErrAlreadyRecording) {
			a.releaseLock()
		}
		return err
	}
	return nil
}

func (a *App) acquireLock() error {
	if a.lock == nil {
		return nil
	}
	if err := ioutils.EnsureDir(filepath.Dir(a.lock.Path())); err != nil {
		return err
	}
	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire recorder lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrRecorderBusy, a.lock.Path())
	}
	return nil
}

func (a *App) releaseLock() {
	if a.lock == nil {
		return
	}
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn().Err(err).Str("lock", a.lock.Path()).Msg("releasing recorder lock")
	}
}

// Stop ends the recording and saves it.
func (a *App) Stop(ctx context.Context) (model.Recording, error) {
	captured, err := a.capture.Stop()
	if !errors.Is(err, capture.ErrNotRecording) {
		a.releaseLock()
	}
	if err != nil {
		if errors.Is(err, capture.ErrNotRecording) || captured.Empty() {
			return model.Recording{}, err
		}
		a.logger.Warn().Err(err).Msg("capture did not stop cleanly, saving what was recorded")
	}
	return a.pipeline.Save(ctx, captured)
}

// Toggle starts a recording when idle, or stops and saves it. The returned
// recording is nil when a recording was started.
func (a *App) Toggle(ctx context.Context) (*model.Recording, error) {
	if a.capture.State() == capture.StateIdle {
		return nil, a.Start(ctx)
	}
	rec, err := a.Stop(ctx)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save uploads an already finished capture.
func (a *App) Save(ctx context.Context, captured capture.Capture) (model.Recording, error) {
	return a.pipeline.Save(ctx, captured)
}

// UploadFile saves an existing video file as a new recording.
func (a *App) UploadFile(ctx context.Context, path string) (model.Recording, error) {
	data, err := ioutils.ReadFile(ctx, path, maxUploadFileBytes)
	if err != nil {
		return model.Recording{}, err
	}
	contentType := storage.ContentTypeFor(path)
	if !strings.HasPrefix(contentType, "video/") {
		contentType = model.DefaultContentType
	}
	return a.pipeline.Save(ctx, capture.Capture{Chunks: [][]byte{data}, MIMEType: contentType})
}

// Reload loads every stored recording and replaces the library with them.
//
// A *metadata.ResolveError still replaces the library, since the list is
// complete; only addresses are missing.
func (a *App) Reload(ctx context.Context) ([]model.Recording, error) {
	recs, err := a.store.LoadAll(ctx)
	var resolveErr *metadata.ResolveError
	if err != nil && !errors.As(err, &resolveErr) {
		return nil, err
	}
	a.library.Replace(recs)
	return a.library.All(), err
}

// Recordings returns the current library.
func (a *App) Recordings() []model.Recording {
	return a.library.All()
}

// Playlist renders the current library as a playlist.
func (a *App) Playlist(format playlist.Format, extended bool) string {
	return playlist.NewCreator(format, extended).Create("Screen recordings", a.library.All())
}

// Fetch downloads the recording with the given id to dest. When dest is a
// directory the recording's file name is appended.
func (a *App) Fetch(ctx context.Context, id, dest string, onProgress func(written, total int64)) (string, error) {
	rec, ok := a.library.LookupID(id)
	if !ok {
		if _, err := a.Reload(ctx); err != nil {
			var resolveErr *metadata.ResolveError
			if !errors.As(err, &resolveErr) {
				return "", err
			}
		}
		if rec, ok = a.library.LookupID(id); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownRecording, id)
		}
	}

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, ioutils.SanitizeFileName(rec.FileName))
	}

	if strings.HasPrefix(rec.DownloadURL, "http://") || strings.HasPrefix(rec.DownloadURL, "https://") {
		return dest, a.client.DownloadFile(ctx, rec.DownloadURL, dest, onProgress)
	}

	rc, info, err := a.objects.Open(ctx, model.ObjectKey(rec.FileName))
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", rec.FileName, err)
	}
	defer rc.Close()
	return dest, apphttp.CopyAtomic(rc, info.Size, dest, onProgress)
}

// Close stops a running recording without saving it and releases the
// metadata backend.
func (a *App) Close() error {
	if a.capture.State() == capture.StateRecording {
		if _, err := a.capture.Stop(); err != nil {
			a.logger.Warn().Err(err).Msg("stopping capture on close")
		}
		a.releaseLock()
	}
	return a.store.Close()
}
