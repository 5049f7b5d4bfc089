// ABOUTME: Playback events reported to observers
// ABOUTME: Session lifecycle, buffer pressure and output mode changes
package playback

import (
	"fmt"

	"github.com/screamsink/screamsink/pkg/scream"
)

// EventKind identifies what happened
type EventKind int

const (
	EventSessionStarted EventKind = iota
	EventSessionStopped
	EventOverflow
	EventUnderrun
	EventModeChanged
	EventOverrunDiscard
)

func (k EventKind) String() string {
	switch k {
	case EventSessionStarted:
		return "session_started"
	case EventSessionStopped:
		return "session_stopped"
	case EventOverflow:
		return "overflow"
	case EventUnderrun:
		return "underrun"
	case EventModeChanged:
		return "mode_changed"
	case EventOverrunDiscard:
		return "overrun_discard"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is an observability notification. Events never affect playback.
type Event struct {
	Kind   EventKind
	Header scream.Header

	// Mode and PrevMode are set for EventModeChanged
	Mode     OutputMode
	PrevMode OutputMode

	// Available and Requested describe the buffer when the event fired
	Available int
	Requested int

	// Count is the number of frames discarded for EventOverrunDiscard
	Count int

	// Reason is set for EventSessionStopped
	Reason string
}

func (e Event) String() string {
	switch e.Kind {
	case EventSessionStarted:
		return fmt.Sprintf("Output received, starting audio (%s)", e.Header)
	case EventSessionStopped:
		return fmt.Sprintf("Stopping audio (%s): %s", e.Header, e.Reason)
	case EventOverflow:
		return fmt.Sprintf("Buffer overflow (%d buffered)", e.Available)
	case EventUnderrun:
		return fmt.Sprintf("Buffer underrun (requested %d)", e.Requested)
	case EventModeChanged:
		return fmt.Sprintf("Output mode changed: %s -> %s, samples: %d, buffer_size: %d",
			e.PrevMode, e.Mode, e.Available, e.Requested)
	case EventOverrunDiscard:
		return fmt.Sprintf("Discarded %d buffered frames to recover latency (%d buffered)", e.Count, e.Available)
	default:
		return e.Kind.String()
	}
}

// Observer receives events. It may be called from the receiver goroutine
// and from a session's event goroutine concurrently.
type Observer func(Event)
