// ABOUTME: Rate adaptation engine driven by the device callback
// ABOUTME: Pops, repeats or skips buffered frames to keep latency bounded without blocking
package playback

import (
	"sync/atomic"

	"github.com/screamsink/screamsink/pkg/audio"
	"github.com/screamsink/screamsink/pkg/jitter"
)

// EngineConfig tunes the adaptation engine
type EngineConfig struct {
	Thresholds Thresholds

	// TargetFrames is the minimum number of frames considered requested per
	// callback; the engine leaves Stopped only once more than this is buffered
	TargetFrames int

	// OverrunLimit triggers a bulk discard when occupancy exceeds it at the
	// start of a callback; 0 disables
	OverrunLimit int

	// EventBuffer is the capacity of the events channel
	EventBuffer int
}

// EngineStats are counters maintained by the engine
type EngineStats struct {
	Played        uint64
	Underruns     uint64
	Discarded     uint64
	ModeChanges   uint64
	DroppedEvents uint64
}

// Engine consumes a jitter buffer on behalf of the device callback.
// Fill must only be called from one goroutine at a time.
type Engine struct {
	cons   *jitter.Consumer[audio.Frame]
	config EngineConfig

	// callback-owned state
	mode      OutputMode
	iteration uint64
	last      audio.Frame
	requested int
	underrun  bool // inside a run of failed pops

	// published for other goroutines
	modeValue     atomic.Int32
	played        atomic.Uint64
	underruns     atomic.Uint64
	discarded     atomic.Uint64
	modeChanges   atomic.Uint64
	droppedEvents atomic.Uint64

	events chan Event
}

// NewEngine creates an engine in Stopped mode holding silence
func NewEngine(cons *jitter.Consumer[audio.Frame], config EngineConfig, channels int) *Engine {
	config.Thresholds = config.Thresholds.withDefaults()
	if config.TargetFrames <= 0 {
		config.TargetFrames = DefaultTargetFrames
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}

	return &Engine{
		cons:   cons,
		config: config,
		mode:   Stopped,
		last:   audio.Silence(channels),
		events: make(chan Event, config.EventBuffer),
	}
}

// Fill writes len(out) frames. It never blocks, allocates or performs I/O.
func (e *Engine) Fill(out []audio.Frame) {
	requested := e.config.TargetFrames
	if len(out) > requested {
		requested = len(out)
	}

	e.requested = requested
	e.recoverOverrun(requested)

	for i := range out {
		out[i] = e.step(requested)
	}
	e.played.Add(uint64(len(out)))
}

// step resolves the mode for one frame and emits it
func (e *Engine) step(requested int) audio.Frame {
	e.iteration++

	available := e.cons.Len()
	mode := NextMode(e.mode, requested, available, e.config.Thresholds)
	if mode != e.mode {
		e.changeMode(mode, requested, available)
	}

	frame := e.emit(mode)
	e.last = frame
	return frame
}

// emit produces the frame for mode, falling back to the last frame whenever
// the buffer cannot supply one
func (e *Engine) emit(mode OutputMode) audio.Frame {
	switch mode {
	case ChuggingAlong:
		return e.pop()

	case PlayFaster:
		first := e.pop()
		if second, ok := e.cons.Pop(); ok {
			return second
		}
		return first

	case PlaySlower:
		if e.iteration%2 == 0 {
			return e.last
		}
		return e.pop()

	default:
		return e.last
	}
}

func (e *Engine) pop() audio.Frame {
	frame, ok := e.cons.Pop()
	if !ok {
		e.underruns.Add(1)
		if !e.underrun {
			e.underrun = true
			e.publish(Event{Kind: EventUnderrun, Requested: e.requested})
		}
		return e.last
	}
	e.underrun = false
	return frame
}

// recoverOverrun drops the backlog down to the top of the adaptation band
func (e *Engine) recoverOverrun(requested int) {
	if e.config.OverrunLimit <= 0 {
		return
	}

	available := e.cons.Len()
	if available <= e.config.OverrunLimit {
		return
	}

	keep := int(float64(requested) * e.config.Thresholds.Faster)
	if keep >= available {
		return
	}

	n := e.cons.Discard(available - keep)
	e.discarded.Add(uint64(n))
	e.publish(Event{Kind: EventOverrunDiscard, Count: n, Available: available, Requested: requested})
}

func (e *Engine) changeMode(mode OutputMode, requested, available int) {
	prev := e.mode
	e.mode = mode
	e.modeValue.Store(int32(mode))
	e.modeChanges.Add(1)
	e.publish(Event{
		Kind:      EventModeChanged,
		Mode:      mode,
		PrevMode:  prev,
		Available: available,
		Requested: requested,
	})
}

// publish hands an event to the session without blocking
func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.droppedEvents.Add(1)
	}
}

// Events returns the channel of engine events
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Mode returns the most recently resolved mode
func (e *Engine) Mode() OutputMode {
	return OutputMode(e.modeValue.Load())
}

// Buffered returns the approximate jitter buffer occupancy
func (e *Engine) Buffered() int {
	return e.cons.Len()
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Played:        e.played.Load(),
		Underruns:     e.underruns.Load(),
		Discarded:     e.discarded.Load(),
		ModeChanges:   e.modeChanges.Load(),
		DroppedEvents: e.droppedEvents.Load(),
	}
}
