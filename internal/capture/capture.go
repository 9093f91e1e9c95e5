package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/screen-recorder/internal/metrics"
)

var (
	// ErrCaptureDenied is returned when the source refuses to grant a stream.
	ErrCaptureDenied = errors.New("screen capture denied")

	// ErrCaptureUnavailable is returned when no capture backend is installed.
	ErrCaptureUnavailable = errors.New("screen capture unavailable")

	// ErrAlreadyRecording is returned by Start while a recording is running.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNotRecording is returned by Stop while idle.
	ErrNotRecording = errors.New("not recording")
)

// State is the capture controller state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source grants capture streams, e.g. after asking the user for permission.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one granted capture stream.
type Stream interface {
	// MIMEType is the container format of the emitted chunks.
	MIMEType() string

	// Start begins emitting encoded chunks to onChunk.
	Start(ctx context.Context, onChunk func([]byte)) error

	// Stop ends the stream. Every remaining chunk is delivered to onChunk
	// before Stop returns.
	Stop() error
}

// Capture holds the chunks of one finished recording.
type Capture struct {
	Chunks    [][]byte
	MIMEType  string
	StartedAt time.Time
	StoppedAt time.Time
}

// Size returns the total number of bytes over all chunks.
func (c Capture) Size() int64 {
	var n int64
	for _, chunk := range c.Chunks {
		n += int64(len(chunk))
	}
	return n
}

// Empty reports whether the capture holds no bytes at all.
func (c Capture) Empty() bool {
	return c.Size() == 0
}

// Bytes concatenates the chunks in emission order.
func (c Capture) Bytes() []byte {
	out := make([]byte, 0, c.Size())
	for _, chunk := range c.Chunks {
		out = append(out, chunk...)
	}
	return out
}

// Duration returns the wall-clock length of the recording.
func (c Capture) Duration() time.Duration {
	if c.StartedAt.IsZero() || c.StoppedAt.Before(c.StartedAt) {
		return 0
	}
	return c.StoppedAt.Sub(c.StartedAt)
}

// Controller drives the Idle/Recording state machine over a Source.
type Controller struct {
	source Source
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	stream    Stream
	startedAt time.Time

	// bufMu guards the chunk buffer separately so a stream may deliver
	// chunks while Start or Stop hold mu.
	bufMu   sync.Mutex
	session uint64
	chunks  [][]byte
}

// NewController creates an idle controller.
func NewController(source Source, logger zerolog.Logger) *Controller {
	return &Controller{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffered returns the number of chunks collected for the running recording.
func (c *Controller) Buffered() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return len(c.chunks)
}

// Start requests a stream and begins recording. The controller only enters
// StateRecording once the stream is granted and started; on any failure it
// stays idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		return ErrAlreadyRecording
	}

	stream, err := c.source.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrCaptureUnavailable) {
			metrics.IncCaptureSession("unavailable")
		} else {
			metrics.IncCaptureSession("denied")
		}
		c.logger.Warn().Err(err).Msg("capture stream not granted")
		if errors.Is(err, ErrCaptureDenied) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
	}

	session := c.resetBuffer()
	onChunk := func(chunk []byte) {
		if len(chunk) == 0 {
			return
		}
		c.bufMu.Lock()
		defer c.bufMu.Unlock()
		if c.session != session {
			return
		}
		c.chunks = append(c.chunks, chunk)
	}

	if err := stream.Start(ctx, onChunk); err != nil {
		c.resetBuffer()
		metrics.IncCaptureSession("denied")
		c.logger.Warn().Err(err).Msg("capture stream failed to start")
		return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
	}

	c.stream = stream
	c.state = StateRecording
	c.startedAt = c.now()
	metrics.IncCaptureSession("started")
	c.logger.Info().Str("mime", stream.MIMEType()).Msg("recording started")
	return nil
}

// Stop ends the recording and returns everything captured since Start.
// The buffer is emptied on every Stop, whether or not the stream stopped
// cleanly.
func (c *Controller) Stop() (Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return Capture{}, ErrNotRecording
	}

	stopErr := c.stream.Stop()

	capture := Capture{
		MIMEType:  c.stream.MIMEType(),
		StartedAt: c.startedAt,
		StoppedAt: c.now(),
	}

	c.bufMu.Lock()
	capture.Chunks = c.chunks
	c.chunks = nil
	c.session++
	c.bufMu.Unlock()

	c.stream = nil
	c.state = StateIdle

	c.logger.Info().
		Int("chunks", len(capture.Chunks)).
		Int64("bytes", capture.Size()).
		Dur("duration", capture.Duration()).
		Msg("recording stopped")

	if stopErr != nil {
		return capture, fmt.Errorf("stop capture: %w", stopErr)
	}
	return capture, nil
}

// Toggle starts a recording when idle and stops it when recording. The
// returned capture is non-nil only when a recording was stopped.
func (c *Controller) Toggle(ctx context.Context) (*Capture, error) {
	if c.State() == StateIdle {
		return nil, c.Start(ctx)
	}
	capture, err := c.Stop()
	if errors.Is(err, ErrNotRecording) {
		return nil, err
	}
	return &capture, err
}

func (c *Controller) resetBuffer() uint64 {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	c.session++
	c.chunks = nil
	return c.session
}
