// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and forwards receiver updates to it
package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/screamsink/screamsink/internal/receiver"
	"github.com/screamsink/screamsink/pkg/playback"
)

// TUI manages the receiver status display
type TUI struct {
	program  *tea.Program
	updates  chan tea.Msg
	quitChan chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a TUI for a receiver
func New(info Info) *TUI {
	return newTUI(info, tea.WithAltScreen())
}

func newTUI(info Info, opts ...tea.ProgramOption) *TUI {
	quitChan := make(chan struct{}, 1)
	return &TUI{
		program:  tea.NewProgram(NewModel(info, quitChan), opts...),
		updates:  make(chan tea.Msg, 32),
		quitChan: quitChan,
		done:     make(chan struct{}),
	}
}

// Start runs the TUI until the user quits or Stop is called
func (t *TUI) Start() error {
	t.wg.Add(1)
	go t.forward()

	_, err := t.program.Run()
	close(t.done)
	t.wg.Wait()
	return err
}

// forward relays queued updates to the program until it exits
func (t *TUI) forward() {
	defer t.wg.Done()
	for {
		select {
		case msg := <-t.updates:
			t.program.Send(msg)
		case <-t.done:
			return
		}
	}
}

// UpdateStats sends a receiver snapshot to the TUI
func (t *TUI) UpdateStats(stats receiver.Stats) {
	t.send(StatusMsg{Stats: stats})
}

// Event sends a playback event to the TUI
func (t *TUI) Event(ev playback.Event) {
	t.send(EventMsg{Event: ev, At: time.Now()})
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
		// Don't block if channel is full
	}
}

// QuitChan returns a channel signalled when the user quits
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}
