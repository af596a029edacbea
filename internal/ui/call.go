package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/peerwave/peerwave/internal/call"
)

type callEventMsg struct {
	event call.Event
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// CallModel is the Bubble Tea model for an in-progress call. Keyboard owns
// the local tracks: m toggles the mic, v the camera, q hangs up.
type CallModel struct {
	session  *call.Session
	roomID   string
	roomLink string

	status call.Status
	errMsg string

	audioOn bool
	videoOn bool

	peerAudio bool
	peerVideo bool
	peerSeen  bool

	spinner   spinner.Model
	connected time.Time
	quitting  bool
}

// NewCallModel creates the call view for a started session.
func NewCallModel(session *call.Session, roomID, roomLink string) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		session:  session,
		roomID:   roomID,
		roomLink: roomLink,
		status:   call.StatusWaiting,
		audioOn:  true,
		videoOn:  true,
		spinner:  s,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listenForEvents(),
		tickCmd(),
	)
}

func (m *CallModel) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.session.Events()
		if !ok {
			return nil
		}
		return callEventMsg{event: e}
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.session.End()
			return m, tea.Quit
		case "m":
			m.audioOn = m.session.ToggleMute()
		case "v":
			m.videoOn = m.session.ToggleVideo()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if !m.quitting {
			cmds = append(cmds, tickCmd())
		}

	case callEventMsg:
		m.handleEvent(msg.event)
		if m.status == call.StatusEnded {
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, m.listenForEvents())
	}

	return m, tea.Batch(cmds...)
}

func (m *CallModel) handleEvent(e call.Event) {
	switch e := e.(type) {
	case call.StatusEvent:
		m.status = e.Status
		if e.Err != nil {
			m.errMsg = e.Err.Error()
		}
		if e.Status == call.StatusConnected && m.connected.IsZero() {
			m.connected = time.Now()
		}

	case call.PeerMediaEvent:
		m.peerSeen = true
		m.peerAudio = e.Audio
		m.peerVideo = e.Video
	}
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := HeaderStyle.Render(fmt.Sprintf("%s PeerWave Call", IconCall))
	b.WriteString(header + "\n\n")

	switch m.status {
	case call.StatusWaiting:
		if m.roomID != "" {
			b.WriteString(NewRoomInfo(m.roomID, m.roomLink).View())
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("%s Waiting for your peer to join...", m.spinner.View()))

	case call.StatusConnecting:
		b.WriteString(fmt.Sprintf("%s Connecting to peer...", m.spinner.View()))

	case call.StatusConnected:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s Connected", IconSuccess)))
		if !m.connected.IsZero() {
			elapsed := time.Since(m.connected).Round(time.Second)
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  %s %s", IconTime, elapsed)))
		}
		b.WriteString("\n\n")
		b.WriteString(m.viewMedia())

	case call.StatusPeerLeft:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s Your peer left the call", IconPeer)))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("%s Waiting for them to rejoin...", m.spinner.View()))

	case call.StatusFailed:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s Call failed", IconError)))
		if m.errMsg != "" {
			b.WriteString("\n\n")
			b.WriteString(ErrorBoxStyle.Render(m.errMsg))
		}
	}

	b.WriteString("\n" + m.viewFooter())

	return ContainerStyle.Render(b.String())
}

func (m *CallModel) viewMedia() string {
	var b strings.Builder

	b.WriteString("  You:  ")
	b.WriteString(mediaBadge(m.audioOn, IconMic, IconMicOff, "mic"))
	b.WriteString("  ")
	b.WriteString(mediaBadge(m.videoOn, IconCam, IconCamOff, "cam"))
	b.WriteString("\n")

	if m.peerSeen {
		b.WriteString("  Peer: ")
		b.WriteString(mediaBadge(m.peerAudio, IconMic, IconMicOff, "mic"))
		b.WriteString("  ")
		b.WriteString(mediaBadge(m.peerVideo, IconCam, IconCamOff, "cam"))
		b.WriteString("\n")
	}

	return b.String()
}

func mediaBadge(on bool, onIcon, offIcon, label string) string {
	if on {
		return fmt.Sprintf("%s %s", onIcon, label)
	}
	return MutedStyle.Render(fmt.Sprintf("%s %s off", offIcon, label))
}

func (m *CallModel) viewFooter() string {
	if m.status == call.StatusFailed {
		return FooterStyle.Render("Press 'q' to exit")
	}
	return FooterStyle.Render("m: toggle mic · v: toggle camera · q: hang up")
}

// RunCall runs the call view until the user quits or the session ends.
func RunCall(session *call.Session, roomID, roomLink string) error {
	model := NewCallModel(session, roomID, roomLink)
	// Inline mode keeps previous terminal output visible
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}
