// ABOUTME: Bubbletea model for the receiver status TUI
// ABOUTME: Defines display state and update logic fed by receiver stats and playback events
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/screamsink/screamsink/internal/receiver"
	"github.com/screamsink/screamsink/pkg/playback"
)

// maxEvents is the number of recent events kept on screen
const maxEvents = 6

// Info is static receiver information shown in the header
type Info struct {
	Name         string
	Group        string
	Port         int
	Backend      string
	TargetFrames int
}

// Model represents the TUI state
type Model struct {
	info Info

	// Latest receiver snapshot
	stats   receiver.Stats
	updated time.Time

	// Recent playback events, oldest first
	events []string

	showDebug bool
	quitting  bool
	quitChan  chan struct{}

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a receiver snapshot
type StatusMsg struct {
	Stats receiver.Stats
}

// EventMsg carries one playback event
type EventMsg struct {
	Event playback.Event
	At    time.Time
}

type tickMsg time.Time

// NewModel creates a new TUI model
func NewModel(info Info, quitChan chan struct{}) Model {
	return Model{
		info:     info,
		quitChan: quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.stats = msg.Stats
		m.updated = time.Now()
	case EventMsg:
		m.addEvent(msg)
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		select {
		case m.quitChan <- struct{}{}:
		default:
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	case "c":
		m.events = nil
	}

	return m, nil
}

func (m *Model) addEvent(msg EventMsg) {
	line := fmt.Sprintf("%s %s", msg.At.Format("15:04:05"), msg.Event)
	m.events = append(m.events, line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping receiver...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Scream Receiver"))
	b.WriteString("\n\n")

	m.renderInfo(&b)
	b.WriteString("\n")
	m.renderStream(&b)
	b.WriteString("\n")
	m.renderStats(&b)

	if m.showDebug {
		b.WriteString("\n")
		m.renderDebug(&b)
	}

	b.WriteString("\n")
	m.renderEvents(&b)

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q:Quit  d:Debug  c:Clear events"))

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name + ": "))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func (m Model) renderInfo(b *strings.Builder) {
	field(b, "Sink", m.info.Name)
	field(b, "Group", fmt.Sprintf("%s:%d", m.info.Group, m.info.Port))
	field(b, "Output", m.info.Backend)
}

func (m Model) renderStream(b *strings.Builder) {
	if !m.stats.Active {
		b.WriteString(sectionStyle.Render("Idle"))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render("  Waiting for audio"))
		b.WriteString("\n")
		return
	}

	s := m.stats.Session
	b.WriteString(sectionStyle.Render("Playing"))
	b.WriteString("\n")
	field(b, "Format", fmt.Sprintf("%dHz %s %d-bit", s.Header.SampleRate, channelName(int(s.Header.Channels)), s.Header.BitDepth))
	field(b, "Mode", s.Mode.String())

	buffer := fmt.Sprintf("[%s] %d/%d frames", renderBar(s.Buffered, s.Capacity, 20), s.Buffered, s.Capacity)
	if rate := int(s.Header.SampleRate); rate > 0 {
		buffer += fmt.Sprintf(" (%dms)", s.Buffered*1000/rate)
	}
	field(b, "Buffer", buffer)
	field(b, "Uptime", time.Since(s.StartedAt).Round(time.Second).String())
}

func (m Model) renderStats(b *strings.Builder) {
	st := m.stats
	field(b, "Packets", fmt.Sprintf("%d (%s)", st.Packets, formatBytes(st.Bytes)))

	problems := fmt.Sprintf("malformed %d  overflows %d  underruns %d  discarded %d",
		st.Malformed, st.Session.Overflows, st.Session.Underruns, st.Session.Discarded)
	if st.Malformed+st.Session.Overflows+st.Session.Underruns > 0 {
		b.WriteString(headerStyle.Render("Problems: "))
		b.WriteString(warnStyle.Render(problems))
		b.WriteString("\n")
	} else {
		field(b, "Problems", problems)
	}
}

func (m Model) renderDebug(b *strings.Builder) {
	st := m.stats
	b.WriteString(sectionStyle.Render("Debug"))
	b.WriteString("\n")
	field(b, "Sessions", fmt.Sprintf("%d (failures %d, timeouts %d)", st.Sessions, st.SessionFailures, st.Timeouts))
	field(b, "Frames", fmt.Sprintf("pushed %d  played %d", st.Session.Pushed, st.Session.Played))
	field(b, "Mode changes", fmt.Sprintf("%d (events dropped %d)", st.Session.ModeChanges, st.Session.DroppedEvents))
	field(b, "Target", fmt.Sprintf("%d frames", m.info.TargetFrames))
	if !st.LastPacket.IsZero() {
		field(b, "Last packet", st.LastPacket.Format("15:04:05.000"))
	}
}

func (m Model) renderEvents(b *strings.Builder) {
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Events (%d)", len(m.events))))
	b.WriteString("\n")
	if len(m.events) == 0 {
		b.WriteString(valueStyle.Render("  No events"))
		b.WriteString("\n")
		return
	}
	for _, line := range m.events {
		b.WriteString(valueStyle.Render("  " + truncate(line, m.lineWidth())))
		b.WriteString("\n")
	}
}

func (m Model) lineWidth() int {
	if m.width > 4 {
		return m.width - 2
	}
	return 78
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
