package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/screen-recorder/internal/model"
)

const (
	defaultChunkSize = 256 * 1024
	defaultFrameRate = 30
	startupGrace     = 500 * time.Millisecond
	stopTimeout      = 10 * time.Second
)

// FFmpegSource captures the screen by running ffmpeg and reading fragmented
// MP4 from its stdout.
type FFmpegSource struct {
	Path      string // ffmpeg binary, looked up in PATH when empty
	Display   string // platform display selector, e.g. ":0.0" or "1"
	Audio     string // platform audio input; empty records video only
	FrameRate int
	ChunkSize int
	GOOS      string // target platform, defaults to runtime.GOOS

	Logger zerolog.Logger
}

func (s *FFmpegSource) binary() string {
	if s.Path == "" {
		return "ffmpeg"
	}
	return s.Path
}

// CheckFFmpeg reports whether the ffmpeg binary can be found.
func (s *FFmpegSource) CheckFFmpeg() error {
	if _, err := exec.LookPath(s.binary()); err != nil {
		return fmt.Errorf("%w: ffmpeg not found: %v", ErrCaptureUnavailable, err)
	}
	return nil
}

// Open grants a stream when ffmpeg is installed. The display itself is only
// opened by Stream.Start.
func (s *FFmpegSource) Open(ctx context.Context) (Stream, error) {
	if err := s.CheckFFmpeg(); err != nil {
		return nil, err
	}
	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &ffmpegStream{
		bin:       s.binary(),
		args:      s.Args(),
		chunkSize: chunkSize,
		logger:    s.Logger,
	}, nil
}

// Args returns the ffmpeg command line for the configured platform.
func (s *FFmpegSource) Args() []string {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	fps := s.FrameRate
	if fps <= 0 {
		fps = defaultFrameRate
	}
	rate := strconv.Itoa(fps)

	args := []string{"-hide_banner", "-loglevel", "error", "-nostats"}
	hasAudio := s.Audio != ""

	switch goos {
	case "darwin":
		display := s.Display
		if display == "" {
			display = "1"
		}
		audio := "none"
		if hasAudio {
			audio = s.Audio
		}
		args = append(args,
			"-f", "avfoundation",
			"-capture_cursor", "1",
			"-framerate", rate,
			"-i", display+":"+audio,
		)
	default:
		display := s.Display
		if display == "" {
			display = ":0.0"
		}
		args = append(args,
			"-f", "x11grab",
			"-framerate", rate,
			"-i", display,
		)
		if hasAudio {
			args = append(args, "-f", "pulse", "-i", s.Audio)
		}
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
	)
	if hasAudio {
		args = append(args, "-c:a", "aac")
	}
	return append(args,
		"-f", "mp4",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"pipe:1",
	)
}

type ffmpegStream struct {
	bin       string
	args      []string
	chunkSize int
	logger    zerolog.Logger

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *tailBuffer
	done    chan struct{}
	waitErr error
}

func (s *ffmpegStream) MIMEType() string {
	return model.DefaultContentType
}

func (s *ffmpegStream) Start(ctx context.Context, onChunk func([]byte)) error {
	cmd := exec.Command(s.bin, s.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	s.stderr = newTailBuffer(4096)
	cmd.Stderr = s.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.done = make(chan struct{})

	s.logger.Debug().Str("bin", s.bin).Strs("args", s.args).Int("pid", cmd.Process.Pid).Msg("ffmpeg started")

	go s.read(stdout, onChunk)

	select {
	case <-s.done:
		// Exited during startup, typically a missing display or permission.
		return fmt.Errorf("ffmpeg exited during startup: %v: %s", s.waitErr, s.stderr.String())
	case <-ctx.Done():
		_ = s.kill()
		<-s.done
		return ctx.Err()
	case <-time.After(startupGrace):
		return nil
	}
}

// read forwards stdout in fixed-size chunks until EOF, then reaps the process.
func (s *ffmpegStream) read(stdout io.Reader, onChunk func([]byte)) {
	defer close(s.done)

	buf := make([]byte, s.chunkSize)
	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn().Err(err).Msg("reading ffmpeg output")
			}
			break
		}
	}
	s.waitErr = s.cmd.Wait()
}

// Stop asks ffmpeg to finish by sending "q", which makes it flush the final
// fragment, and kills it when it does not exit in time.
func (s *ffmpegStream) Stop() error {
	if _, err := io.WriteString(s.stdin, "q\n"); err != nil {
		s.logger.Debug().Err(err).Msg("ffmpeg stdin already closed")
	}
	_ = s.stdin.Close()

	select {
	case <-s.done:
	case <-time.After(stopTimeout):
		s.logger.Warn().Dur("timeout", stopTimeout).Msg("ffmpeg did not exit, killing")
		_ = s.kill()
		<-s.done
	}

	if s.waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(s.waitErr, &exitErr) && s.stderr.Len() == 0 {
			// Exit status after "q" without diagnostics.
			return nil
		}
		return fmt.Errorf("ffmpeg: %w: %s", s.waitErr, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

func (s *ffmpegStream) kill() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Kill()
}

// ExtractFrame decodes the first video frame of an MP4 recording and returns
// it as PNG.
func ExtractFrame(ctx context.Context, ffmpegPath string, video []byte) ([]byte, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrCaptureUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(video)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("extracting frame: %w\n%s", err, stderr.String())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("extracting frame: no frame decoded")
	}
	return out, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *tailBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
