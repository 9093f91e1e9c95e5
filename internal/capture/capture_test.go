package capture

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"
)

type fakeStream struct {
	mime     string
	chunks   [][]byte // emitted on Start
	final    []byte   // emitted on Stop
	startErr error
	stopErr  error
	onChunk  func([]byte)
}

func (s *fakeStream) MIMEType() string { return s.mime }

func (s *fakeStream) Start(ctx context.Context, onChunk func([]byte)) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.onChunk = onChunk
	for _, c := range s.chunks {
		onChunk(c)
	}
	return nil
}

func (s *fakeStream) Stop() error {
	if s.final != nil {
		s.onChunk(s.final)
	}
	return s.stopErr
}

type fakeSource struct {
	streams []*fakeStream
	openErr error
	opened  int
}

func (s *fakeSource) Open(ctx context.Context) (Stream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	stream := s.streams[s.opened]
	s.opened++
	return stream, nil
}

func newTestController(src Source) *Controller {
	return NewController(src, zerolog.Nop())
}

func TestController_StartStop(t *testing.T) {
	stream := &fakeStream{
		mime:   "video/mp4",
		chunks: [][]byte{[]byte("ab"), []byte("cd")},
		final:  []byte("ef"),
	}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{stream}})

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ctrl.State() != StateRecording {
		t.Fatalf("State() = %v, want recording", ctrl.State())
	}
	if got := ctrl.Buffered(); got != 2 {
		t.Errorf("Buffered() = %d, want 2", got)
	}

	rec, err := ctrl.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}
	if got := string(rec.Bytes()); got != "abcdef" {
		t.Errorf("Bytes() = %q, want %q", got, "abcdef")
	}
	if rec.MIMEType != "video/mp4" {
		t.Errorf("MIMEType = %q", rec.MIMEType)
	}
	if ctrl.Buffered() != 0 {
		t.Errorf("buffer not drained after Stop")
	}
}

func TestController_DeniedStaysIdle(t *testing.T) {
	platformErr := errors.New("permission dismissed")
	ctrl := newTestController(&fakeSource{openErr: platformErr})

	err := ctrl.Start(context.Background())
	if !errors.Is(err, ErrCaptureDenied) {
		t.Fatalf("Start() error = %v, want ErrCaptureDenied", err)
	}
	if !errors.Is(err, platformErr) {
		t.Errorf("Start() error should wrap the platform error")
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}
}

func TestController_UnavailableIsDenial(t *testing.T) {
	ctrl := newTestController(&fakeSource{openErr: ErrCaptureUnavailable})

	err := ctrl.Start(context.Background())
	if !errors.Is(err, ErrCaptureDenied) || !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestController_StreamStartFailure(t *testing.T) {
	stream := &fakeStream{startErr: errors.New("no display")}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{stream}})

	if err := ctrl.Start(context.Background()); !errors.Is(err, ErrCaptureDenied) {
		t.Fatalf("Start() error = %v", err)
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}
}

func TestController_InvalidTransitions(t *testing.T) {
	stream := &fakeStream{mime: "video/mp4"}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{stream}})

	if _, err := ctrl.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop() while idle error = %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v", err)
	}
}

func TestController_ImmediateStopIsEmpty(t *testing.T) {
	stream := &fakeStream{mime: "video/mp4"}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{stream}})

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec, err := ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Empty() || len(rec.Chunks) != 0 {
		t.Errorf("capture = %+v, want empty", rec)
	}
}

func TestController_NoStaleChunksAcrossRecordings(t *testing.T) {
	first := &fakeStream{mime: "video/mp4", chunks: [][]byte{[]byte("old")}, stopErr: errors.New("flush failed")}
	second := &fakeStream{mime: "video/mp4", chunks: [][]byte{[]byte("new")}}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{first, second}})

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.Stop(); err == nil {
		t.Fatal("Stop() should report the stream error")
	}

	// Late chunk from the first stream must not leak into the second.
	first.onChunk([]byte("late"))

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec, err := ctrl.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(rec.Bytes()); got != "new" {
		t.Errorf("Bytes() = %q, want %q", got, "new")
	}
}

func TestController_Toggle(t *testing.T) {
	stream := &fakeStream{mime: "video/mp4", chunks: [][]byte{[]byte("x")}}
	ctrl := newTestController(&fakeSource{streams: []*fakeStream{stream}})
	ctx := context.Background()

	rec, err := ctrl.Toggle(ctx)
	if err != nil || rec != nil {
		t.Fatalf("first Toggle() = %v, %v", rec, err)
	}
	rec, err = ctrl.Toggle(ctx)
	if err != nil || rec == nil {
		t.Fatalf("second Toggle() = %v, %v", rec, err)
	}
	if rec.Size() != 1 {
		t.Errorf("Size() = %d, want 1", rec.Size())
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}
}

func TestFFmpegSource_Args(t *testing.T) {
	tests := []struct {
		name string
		src  FFmpegSource
		want []string
	}{
		{
			name: "linux default",
			src:  FFmpegSource{GOOS: "linux"},
			want: []string{"-f", "x11grab", "-framerate", "30", "-i", ":0.0"},
		},
		{
			name: "linux with audio",
			src:  FFmpegSource{GOOS: "linux", Audio: "default", FrameRate: 15},
			want: []string{"-framerate", "15", "-f", "pulse", "-i", "default", "-c:a", "aac"},
		},
		{
			name: "darwin",
			src:  FFmpegSource{GOOS: "darwin", Display: "2"},
			want: []string{"-f", "avfoundation", "-i", "2:none"},
		},
		{
			name: "other unix uses x11grab",
			src:  FFmpegSource{GOOS: "freebsd", Display: ":1.0"},
			want: []string{"-f", "x11grab", "-i", ":1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.src.Args()
			for _, w := range tt.want {
				if !slices.Contains(args, w) {
					t.Errorf("Args() = %v, missing %q", args, w)
				}
			}
			if args[len(args)-1] != "pipe:1" {
				t.Errorf("Args() should write to stdout, got %q", args[len(args)-1])
			}
			if !slices.Contains(args, "frag_keyframe+empty_moov+default_base_moof") {
				t.Errorf("Args() should produce fragmented MP4")
			}
		})
	}
}

func TestFFmpegSource_MissingBinary(t *testing.T) {
	src := &FFmpegSource{Path: "/nonexistent/ffmpeg-for-tests"}
	ctrl := newTestController(src)

	err := ctrl.Start(context.Background())
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Start() error = %v, want ErrCaptureUnavailable", err)
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(4)
	_, _ = b.Write([]byte("ab"))
	_, _ = b.Write([]byte("cdef"))
	if got := b.String(); got != "cdef" {
		t.Errorf("String() = %q, want %q", got, "cdef")
	}
}
