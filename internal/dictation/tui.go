// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     dictation
// Description: Bubbletea model for the dictation client
// License:     MIT
// ============================================================================

package dictation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voxnote/voxnote/internal/dictation/audio"
	"github.com/voxnote/voxnote/pkg/core/logging"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	recordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(72)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// uiState is the dictation UI state
type uiState int

const (
	stateIdle uiState = iota
	stateStarting
	stateRecording
	stateFinishing
)

// Messages passed through the Bubbletea update loop
type (
	startedMsg          struct{ transcriptID string }
	startFailedMsg      struct{ err error }
	micFailedMsg        struct{ err error }
	recordingStoppedMsg struct{ durationSeconds float64 }
	finishedMsg         struct{ text string }
	finishFailedMsg     struct{ err error }
	uploadErrorMsg      struct{ err error }
	toggleMsg           struct{}
)

// Model is the Bubbletea model for the dictation client
type Model struct {
	state        uiState
	transcriptID string
	chunkCount   int
	warning      string
	finalText    string
	err          error

	settings Settings
	uploader *Uploader
	logger   *logging.Logger

	capture  *audio.Capture
	session  *Session
	stopFunc context.CancelFunc

	// events carries messages from background goroutines (uploads, the
	// recording loop, the global hotkey) into the update loop
	events chan tea.Msg

	spinner   spinner.Model
	stopwatch stopwatch.Model
}

// NewModel creates the dictation model
func NewModel(settings Settings) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	events := make(chan tea.Msg, 16)

	uploader := NewUploader(settings.ServerURL, settings.AuthToken)
	uploader.OnError(func(err error) {
		select {
		case events <- uploadErrorMsg{err: err}:
		default:
		}
	})

	return Model{
		state:     stateIdle,
		settings:  settings,
		uploader:  uploader,
		logger:    logging.New("dictate-ui"),
		events:    events,
		spinner:   sp,
		stopwatch: stopwatch.NewWithInterval(200 * time.Millisecond),
	}
}

// Events returns the channel background goroutines post into. The hotkey
// listener uses it to toggle recording.
func (m Model) Events() chan<- tea.Msg {
	return m.events
}

// Init starts the event listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenEvents(), m.spinner.Tick)
}

// listenEvents waits for one background event
func (m Model) listenEvents() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateRecording {
				// Stop the recording first so the partial chunk is not lost
				return m.stopRecording()
			}
			return m, tea.Quit
		case "enter", " ":
			return m.toggle()
		}

	case toggleMsg:
		model, cmd := m.toggle()
		return model, tea.Batch(cmd, m.listenEvents())

	case startedMsg:
		return m.beginCapture(msg.transcriptID)

	case startFailedMsg:
		m.state = stateIdle
		m.warning = "network issue – could not reach the server"
		m.logger.Error("start failed", "error", msg.err)
		return m, nil

	case micFailedMsg:
		m.state = stateIdle
		m.warning = "could not access microphone"
		m.logger.Error("microphone unavailable", "error", msg.err)
		return m, nil

	case uploadErrorMsg:
		// Recording continues, the server merges whatever arrives
		m.warning = "network issue – some slices may be missing"
		return m, m.listenEvents()

	case recordingStoppedMsg:
		m.state = stateFinishing
		return m, tea.Batch(m.finishCmd(msg.durationSeconds), m.listenEvents())

	case finishedMsg:
		m.state = stateIdle
		m.finalText = msg.text
		m.transcriptID = ""
		return m, m.stopwatch.Reset()

	case finishFailedMsg:
		m.state = stateIdle
		m.warning = "network issue – transcript was not finalized"
		m.logger.Error("finish failed", "error", msg.err)
		return m, m.stopwatch.Reset()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stopwatch.TickMsg, stopwatch.StartStopMsg, stopwatch.ResetMsg:
		var cmd tea.Cmd
		m.stopwatch, cmd = m.stopwatch.Update(msg)
		return m, cmd
	}

	return m, nil
}

// toggle starts or stops recording depending on the current state
func (m Model) toggle() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateIdle:
		m.state = stateStarting
		m.warning = ""
		m.finalText = ""
		return m, m.startCmd()
	case stateRecording:
		return m.stopRecording()
	default:
		return m, nil
	}
}

// startCmd asks the server for a new transcript
func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		id, err := m.uploader.Start(ctx)
		if err != nil {
			return startFailedMsg{err: err}
		}
		return startedMsg{transcriptID: id}
	}
}

// beginCapture opens the microphone and starts the slicing session
func (m Model) beginCapture(transcriptID string) (tea.Model, tea.Cmd) {
	capture, err := audio.NewCapture(audio.CaptureConfig{
		SampleRate: audio.DefaultSampleRate,
		BufferSize: audio.DefaultFramesPerBuffer,
		Channels:   audio.DefaultChannels,
		DeviceName: m.settings.InputDevice,
	})
	if err != nil {
		return m, func() tea.Msg { return micFailedMsg{err: err} }
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := capture.Start(ctx); err != nil {
		cancel()
		capture.Close()
		return m, func() tea.Msg { return micFailedMsg{err: err} }
	}

	session := NewSession(SessionConfig{
		TranscriptID:  transcriptID,
		SampleRate:    audio.DefaultSampleRate,
		SliceLengthMs: m.settings.SliceLengthMs,
		Sink:          m.uploader,
	})

	m.capture = capture
	m.session = session
	m.stopFunc = cancel
	m.transcriptID = transcriptID
	m.state = stateRecording
	m.chunkCount = 0

	events := m.events
	go func() {
		duration := session.Run(ctx, capture.Output())
		events <- recordingStoppedMsg{durationSeconds: duration}
	}()

	return m, tea.Batch(m.stopwatch.Start(), m.listenEvents())
}

// stopRecording closes the microphone; the recording loop flushes the
// final partial chunk and reports back with the wall-clock duration
func (m Model) stopRecording() (tea.Model, tea.Cmd) {
	if m.stopFunc != nil {
		m.stopFunc()
		m.stopFunc = nil
	}
	if m.capture != nil {
		m.capture.Stop()
	}

	m.state = stateFinishing
	return m, m.stopwatch.Stop()
}

// finishCmd tells the server the recording is complete
func (m Model) finishCmd(durationSeconds float64) tea.Cmd {
	transcriptID := m.transcriptID
	uploader := m.uploader
	capture := m.capture

	return func() tea.Msg {
		if capture != nil {
			capture.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		text, err := uploader.Finish(ctx, transcriptID, durationSeconds)
		if err != nil {
			return finishFailedMsg{err: err}
		}
		return finishedMsg{text: text}
	}
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VoxNote Dictation"))
	b.WriteString("\n\n")

	switch m.state {
	case stateIdle:
		b.WriteString(statusStyle.Render("Ready – press Enter to start dictating"))
	case stateStarting:
		b.WriteString(m.spinner.View() + statusStyle.Render(" Starting session..."))
	case stateRecording:
		chunks := ""
		if m.session != nil {
			chunks = fmt.Sprintf("  %d slices sent", m.session.ChunkCount())
		}
		b.WriteString(recordingStyle.Render("● Recording ") + m.stopwatch.View() + statusStyle.Render(chunks))
	case stateFinishing:
		b.WriteString(m.spinner.View() + statusStyle.Render(" Finishing transcript..."))
	}
	b.WriteString("\n")

	if m.warning != "" {
		b.WriteString("\n" + warningStyle.Render(m.warning) + "\n")
	}

	if m.finalText != "" {
		b.WriteString("\n" + textStyle.Render(m.finalText) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("enter: start/stop • q: quit"))
	b.WriteString("\n")

	return b.String()
}

// Run starts the dictation client and blocks until it exits
func Run(settings Settings) error {
	model := NewModel(settings)

	cleanup, err := registerHotkey(model.Events())
	if err != nil {
		model.logger.Warn("Failed to register hotkey", "error", err)
	} else {
		defer cleanup()
	}

	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}
