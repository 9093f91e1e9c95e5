package storage

import (
	"context"
	"fmt"
	"sync"
)

// TaskState is the lifecycle state of an UploadTask.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskFailed
	TaskSucceeded
)

// String returns the lowercase name of the state.
func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskFailed:
		return "failed"
	case TaskSucceeded:
		return "succeeded"
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

// Snapshot is the progress of an upload at one point in time.
type Snapshot struct {
	BytesTransferred int64
	TotalBytes       int64
	State            TaskState
}

// Percent returns BytesTransferred / TotalBytes * 100, or 0 for an empty upload.
func (s Snapshot) Percent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.BytesTransferred) / float64(s.TotalBytes) * 100
}

// UploadTask uploads one in-memory object through an ObjectStore session.
//
// Run sends the data chunk by chunk and reports a Snapshot after every
// committed chunk. When Run fails, calling it again resumes from the offset
// the store has committed instead of starting over.
//
// Example:
//
//	task := NewUploadTask(store, "recordings/rec.mp4", data, "video/mp4", 256*1024)
//	info, err := task.Run(ctx, func(s Snapshot) {
//	    fmt.Printf("%.0f%%\n", s.Percent())
//	})
type UploadTask struct {
	store       ObjectStore
	key         string
	contentType string
	data        []byte
	chunkSize   int

	mu        sync.Mutex
	sessionID string
	snapshot  Snapshot
}

// NewUploadTask creates a task; nothing is sent before Run.
// A non-positive chunkSize sends the data in one chunk.
func NewUploadTask(store ObjectStore, key string, data []byte, contentType string, chunkSize int) *UploadTask {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	return &UploadTask{
		store:       store,
		key:         key,
		contentType: contentType,
		data:        data,
		chunkSize:   chunkSize,
		snapshot:    Snapshot{TotalBytes: int64(len(data)), State: TaskPending},
	}
}

// Key returns the destination object key.
func (t *UploadTask) Key() string {
	return t.key
}

// Snapshot returns the latest progress.
func (t *UploadTask) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Run uploads the remaining bytes and commits the object.
func (t *UploadTask) Run(ctx context.Context, onProgress func(Snapshot)) (ObjectInfo, error) {
	offset, err := t.begin(ctx)
	if err != nil {
		return ObjectInfo{}, t.fail(err)
	}

	total := int64(len(t.data))
	for offset < total {
		if err := ctx.Err(); err != nil {
			return ObjectInfo{}, t.fail(err)
		}

		end := offset + int64(t.chunkSize)
		if end > total {
			end = total
		}

		next, err := t.store.WriteChunk(ctx, t.sessionID, offset, t.data[offset:end])
		if err != nil {
			return ObjectInfo{}, t.fail(fmt.Errorf("writing chunk at offset %d: %w", offset, err))
		}
		if next <= offset {
			return ObjectInfo{}, t.fail(fmt.Errorf("store did not advance past offset %d: %w", offset, ErrOffsetMismatch))
		}
		offset = next
		t.report(offset, TaskRunning, onProgress)
	}

	info, err := t.store.Commit(ctx, t.sessionID)
	if err != nil {
		return ObjectInfo{}, t.fail(fmt.Errorf("committing %s: %w", t.key, err))
	}
	t.report(total, TaskSucceeded, onProgress)
	return info, nil
}

// begin opens the session on the first run and asks the store for the
// committed offset on later ones.
func (t *UploadTask) begin(ctx context.Context) (int64, error) {
	t.mu.Lock()
	sessionID := t.sessionID
	t.snapshot.State = TaskRunning
	t.mu.Unlock()

	if sessionID == "" {
		id, err := t.store.CreateSession(ctx, t.key, t.contentType, int64(len(t.data)))
		if err != nil {
			return 0, fmt.Errorf("creating upload session: %w", err)
		}
		t.mu.Lock()
		t.sessionID = id
		t.mu.Unlock()
		return 0, nil
	}

	offset, err := t.store.Offset(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("resuming upload session: %w", err)
	}
	t.mu.Lock()
	t.snapshot.BytesTransferred = offset
	t.mu.Unlock()
	return offset, nil
}

func (t *UploadTask) report(offset int64, state TaskState, onProgress func(Snapshot)) {
	t.mu.Lock()
	t.snapshot.BytesTransferred = offset
	t.snapshot.State = state
	snap := t.snapshot
	t.mu.Unlock()

	if onProgress != nil {
		onProgress(snap)
	}
}

func (t *UploadTask) fail(err error) error {
	t.mu.Lock()
	t.snapshot.State = TaskFailed
	t.mu.Unlock()
	return err
}
