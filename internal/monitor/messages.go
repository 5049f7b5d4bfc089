// ABOUTME: JSON messages published by the status monitor
// ABOUTME: Flattens receiver stats and playback events for websocket clients
package monitor

import (
	"time"

	"github.com/screamsink/screamsink/internal/receiver"
	"github.com/screamsink/screamsink/pkg/playback"
)

// Message is one websocket frame
type Message struct {
	Type   string    `json:"type"`
	Time   time.Time `json:"time"`
	Status *Status   `json:"status,omitempty"`
	Event  *Event    `json:"event,omitempty"`
}

// Status is the JSON form of receiver.Stats
type Status struct {
	Active          bool   `json:"active"`
	Packets         uint64 `json:"packets"`
	Bytes           uint64 `json:"bytes"`
	Malformed       uint64 `json:"malformed"`
	Sessions        uint64 `json:"sessions"`
	SessionFailures uint64 `json:"session_failures"`
	Timeouts        uint64 `json:"timeouts"`

	SampleRate    uint32 `json:"sample_rate,omitempty"`
	BitDepth      uint8  `json:"bit_depth,omitempty"`
	Channels      uint16 `json:"channels,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Buffered      int    `json:"buffered"`
	Capacity      int    `json:"capacity"`
	Pushed        uint64 `json:"pushed"`
	Overflows     uint64 `json:"overflows"`
	Played        uint64 `json:"played"`
	Underruns     uint64 `json:"underruns"`
	Discarded     uint64 `json:"discarded"`
	ModeChanges   uint64 `json:"mode_changes"`
	DroppedEvents uint64 `json:"dropped_events"`
}

// Event is the JSON form of playback.Event
type Event struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Format    string `json:"format,omitempty"`
	Mode      string `json:"mode,omitempty"`
	PrevMode  string `json:"prev_mode,omitempty"`
	Available int    `json:"available,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Count     int    `json:"count,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func newStatus(st receiver.Stats) Status {
	status := Status{
		Active:          st.Active,
		Packets:         st.Packets,
		Bytes:           st.Bytes,
		Malformed:       st.Malformed,
		Sessions:        st.Sessions,
		SessionFailures: st.SessionFailures,
		Timeouts:        st.Timeouts,
	}
	if !st.Active {
		return status
	}

	s := st.Session
	status.SampleRate = s.Header.SampleRate
	status.BitDepth = s.Header.BitDepth
	status.Channels = s.Header.Channels
	status.Mode = s.Mode.String()
	status.Buffered = s.Buffered
	status.Capacity = s.Capacity
	status.Pushed = s.Pushed
	status.Overflows = s.Overflows
	status.Played = s.Played
	status.Underruns = s.Underruns
	status.Discarded = s.Discarded
	status.ModeChanges = s.ModeChanges
	status.DroppedEvents = s.DroppedEvents
	return status
}

func newStatusMessage(st receiver.Stats, now time.Time) Message {
	status := newStatus(st)
	return Message{Type: "status", Time: now, Status: &status}
}

func newEventMessage(ev playback.Event, now time.Time) Message {
	e := &Event{
		Kind:      ev.Kind.String(),
		Message:   ev.String(),
		Available: ev.Available,
		Requested: ev.Requested,
		Count:     ev.Count,
		Reason:    ev.Reason,
	}
	if ev.Header.SampleRate != 0 {
		e.Format = ev.Header.String()
	}
	if ev.Kind == playback.EventModeChanged {
		e.Mode = ev.Mode.String()
		e.PrevMode = ev.PrevMode.String()
	}
	return Message{Type: "event", Time: now, Event: e}
}
