package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/screen-recorder/internal/metadata"
	"github.com/handiism/screen-recorder/internal/model"
	"github.com/handiism/screen-recorder/internal/upload"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	recordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF3B3B"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs        = 10
	maxListed      = 15
	progressBuffer = 64
)

// Recorder is the application surface the TUI drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (model.Recording, error)
	Reload(ctx context.Context) ([]model.Recording, error)
	Recordings() []model.Recording
	Buffered() int
	SetProgressHandler(fn func(upload.ProgressEvent))
}

// State represents the current UI state.
type State int

const (
	StateLoading State = iota
	StateIdle
	StateStarting
	StateRecording
	StateUploading
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   upload.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state      State
	spinner    spinner.Model
	progress   progress.Model
	recorder   Recorder
	logs       []LogEntry
	recordings []model.Recording

	ctx    context.Context
	cancel context.CancelFunc

	events    chan upload.ProgressEvent
	startedAt time.Time
	buffered  int
	percent   float64

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model over rec.
func NewModel(rec Recorder) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan upload.ProgressEvent, progressBuffer)
	rec.SetProgressHandler(func(e upload.ProgressEvent) {
		select {
		case events <- e:
		default:
			// UI is behind; the next event carries newer progress.
		}
	})

	return Model{
		state:    StateLoading,
		spinner:  sp,
		progress: prog,
		recorder: rec,
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
		events:   events,
	}
}

// Init loads the recording list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.reload(), m.waitForProgress())
}

// Message types
type (
	// ProgressMsg carries one upload progress event.
	ProgressMsg struct {
		Event upload.ProgressEvent
	}

	// ReloadDoneMsg is sent when the recording list was loaded.
	ReloadDoneMsg struct {
		Recordings []model.Recording
		Err        error
	}

	// StartDoneMsg is sent when the capture stream was granted or refused.
	StartDoneMsg struct {
		Err error
	}

	// SaveDoneMsg is sent when a stopped recording was uploaded and saved.
	SaveDoneMsg struct {
		Recording model.Recording
		Err       error
	}

	// TickMsg is for periodic updates while recording.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "q", "esc":
			if m.state == StateIdle || m.state == StateLoading {
				m.cancel()
				return m, tea.Quit
			}

		case " ", "r":
			switch m.state {
			case StateIdle:
				m.state = StateStarting
				cmds = append(cmds, m.start(), m.spinner.Tick)
			case StateRecording:
				m.state = StateUploading
				m.percent = 0
				cmds = append(cmds, m.stop(), m.progress.SetPercent(0), m.spinner.Tick)
			}

		case "l":
			if m.state == StateIdle {
				m.state = StateLoading
				cmds = append(cmds, m.reload(), m.spinner.Tick)
			}

		case "v":
			m.verbose = !m.verbose
		}

	case spinner.TickMsg:
		if m.state != StateIdle {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case ProgressMsg:
		if msg.Event.Percent > 0 {
			m.percent = msg.Event.Percent / 100
			cmds = append(cmds, m.progress.SetPercent(m.percent))
		}
		if msg.Event.Level != upload.LevelVerbose || m.verbose {
			m.log(msg.Event.Message, msg.Event.Level)
		}
		cmds = append(cmds, m.waitForProgress())

	case ReloadDoneMsg:
		m.state = StateIdle
		var resolveErr *metadata.ResolveError
		switch {
		case msg.Err == nil:
			m.recordings = msg.Recordings
			m.log(fmt.Sprintf("Loaded %d recording(s)", len(msg.Recordings)), upload.LevelInfo)
		case errors.As(msg.Err, &resolveErr):
			m.recordings = msg.Recordings
			m.log(fmt.Sprintf("%d recording(s) have no address: %v", len(resolveErr.Failures), msg.Err), upload.LevelWarning)
		default:
			m.log(fmt.Sprintf("Loading recordings failed: %v", msg.Err), upload.LevelError)
		}

	case StartDoneMsg:
		if msg.Err != nil {
			m.state = StateIdle
			m.log(fmt.Sprintf("Could not start recording: %v", msg.Err), upload.LevelError)
		} else {
			m.state = StateRecording
			m.startedAt = time.Now()
			m.buffered = 0
			m.log("Recording started", upload.LevelInfo)
			cmds = append(cmds, m.tick())
		}

	case SaveDoneMsg:
		m.state = StateIdle
		switch {
		case msg.Err == nil:
			m.recordings = m.recorder.Recordings()
		case errors.Is(msg.Err, upload.ErrEmptyRecording):
			m.log("Nothing was recorded", upload.LevelWarning)
		default:
			m.log(fmt.Sprintf("Saving failed: %v", msg.Err), upload.LevelError)
		}

	case TickMsg:
		if m.state == StateRecording {
			m.buffered = m.recorder.Buffered()
			cmds = append(cmds, m.tick())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) log(message string, level upload.ProgressLevel) {
	m.logs = append(m.logs, LogEntry{Message: message, Level: level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) waitForProgress() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

func (m Model) reload() tea.Cmd {
	ctx, rec := m.ctx, m.recorder
	return func() tea.Msg {
		recs, err := rec.Reload(ctx)
		return ReloadDoneMsg{Recordings: recs, Err: err}
	}
}

func (m Model) start() tea.Cmd {
	ctx, rec := m.ctx, m.recorder
	return func() tea.Msg {
		return StartDoneMsg{Err: rec.Start(ctx)}
	}
}

func (m Model) stop() tea.Cmd {
	ctx, rec := m.ctx, m.recorder
	return func() tea.Msg {
		saved, err := rec.Stop(ctx)
		return SaveDoneMsg{Recording: saved, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Screen Recorder"))
	b.WriteString("\n")

	switch m.state {
	case StateLoading:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Loading recordings..."))
	case StateStarting:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Requesting screen capture..."))
	case StateRecording:
		elapsed := time.Since(m.startedAt).Truncate(time.Second)
		b.WriteString(recordingStyle.Render(fmt.Sprintf("● REC %s", elapsed)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d chunk(s) buffered", m.buffered)))
	case StateUploading:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Uploading..."))
		b.WriteString("\n")
		b.WriteString(m.progress.ViewAs(m.percent))
	default:
		b.WriteString(infoStyle.Render("Idle"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderRecordings())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))
	return b.String()
}

func (m Model) renderRecordings() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Recordings (%d)", len(m.recordings))))
	b.WriteString("\n")
	if len(m.recordings) == 0 {
		b.WriteString(dimStyle.Render("  none yet"))
		b.WriteString("\n")
		return b.String()
	}

	start := max(len(m.recordings)-maxListed, 0)
	for _, rec := range m.recordings[start:] {
		address := rec.DownloadURL
		if address == "" {
			address = "(address unavailable)"
		}
		b.WriteString(itemStyle.Render("  ▶ " + rec.FileName))
		b.WriteString(dimStyle.Render("  " + address))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case upload.LevelError:
			style = errorStyle
			prefix = "✗"
		case upload.LevelWarning:
			style = warningStyle
			prefix = "!"
		case upload.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case upload.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateIdle:
		return "space/r: record • l: reload • v: verbose • q: quit"
	case StateRecording:
		return "space/r: stop and save • ctrl+c: quit without saving"
	default:
		return "ctrl+c: quit"
	}
}

// Run starts the TUI application.
func Run(rec Recorder) error {
	p := tea.NewProgram(NewModel(rec), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
