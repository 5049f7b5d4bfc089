// ABOUTME: Playback session binding a stream format to a device stream and jitter buffer
// ABOUTME: Created per accepted header and torn down on format change or silence
package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screamsink/screamsink/pkg/audio"
	"github.com/screamsink/screamsink/pkg/audio/output"
	"github.com/screamsink/screamsink/pkg/jitter"
	"github.com/screamsink/screamsink/pkg/scream"
)

const (
	// DefaultTargetFrames is the default buffered-frames target
	DefaultTargetFrames = 1024

	// DefaultCapacityFactor sizes the jitter buffer relative to the target
	DefaultCapacityFactor = 10

	defaultEventBuffer = 64
)

// Config holds session configuration
type Config struct {
	// Thresholds tune rate adaptation (zero fields use DefaultThresholds)
	Thresholds Thresholds

	// TargetFrames is the buffered-frames target (default: 1024)
	TargetFrames int

	// Capacity is the jitter buffer size in frames (default: 10 × TargetFrames)
	Capacity int

	// OverrunLimit is the occupancy above which the backlog is discarded
	// (default: Capacity - TargetFrames, negative disables)
	OverrunLimit int

	// PeriodFrames is the preferred device callback size (0: backend default)
	PeriodFrames int

	// EventBuffer is the capacity of the engine event queue (default: 64)
	EventBuffer int
}

// WithDefaults returns c with zero fields filled in
func (c Config) WithDefaults() Config {
	c.Thresholds = c.Thresholds.withDefaults()
	if c.TargetFrames <= 0 {
		c.TargetFrames = DefaultTargetFrames
	}
	if c.Capacity <= 0 {
		c.Capacity = c.TargetFrames * DefaultCapacityFactor
	}
	if c.OverrunLimit == 0 {
		c.OverrunLimit = c.Capacity - c.TargetFrames
	}
	if c.OverrunLimit < 0 {
		c.OverrunLimit = 0
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	return c
}

// Stats is a snapshot of a session's counters
type Stats struct {
	Header    scream.Header
	Mode      OutputMode
	Buffered  int
	Capacity  int
	Pushed    uint64
	Overflows uint64
	StartedAt time.Time
	EngineStats
}

// Session plays one stream format. Push and PushPacket must be called from a
// single goroutine; Stats may be called from any goroutine.
type Session struct {
	header   scream.Header
	config   Config
	prod     *jitter.Producer[audio.Frame]
	engine   *Engine
	stream   output.Stream
	observer Observer
	started  time.Time

	pushed      atomic.Uint64
	overflows   atomic.Uint64
	overflowing bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewSession opens and starts a device stream for h. On error nothing is left
// running and no session exists.
func NewSession(out output.Output, h scream.Header, config Config, observer Observer) (*Session, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid header %s: %w", h, err)
	}

	config = config.WithDefaults()
	if observer == nil {
		observer = func(Event) {}
	}

	prod, cons := jitter.New[audio.Frame](config.Capacity)
	engine := NewEngine(cons, EngineConfig{
		Thresholds:   config.Thresholds,
		TargetFrames: config.TargetFrames,
		OverrunLimit: config.OverrunLimit,
		EventBuffer:  config.EventBuffer,
	}, int(h.Channels))

	stream, err := out.Open(output.StreamConfig{
		SampleRate:   int(h.SampleRate),
		Channels:     int(h.Channels),
		PeriodFrames: config.PeriodFrames,
	}, engine)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}

	s := &Session{
		header:   h,
		config:   config,
		prod:     prod,
		engine:   engine,
		stream:   stream,
		observer: observer,
		started:  time.Now(),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.pumpEvents()

	if err := stream.Start(); err != nil {
		closeErr := stream.Close()
		close(s.done)
		s.wg.Wait()
		return nil, errors.Join(fmt.Errorf("failed to start output stream: %w", err), closeErr)
	}

	s.observer(Event{Kind: EventSessionStarted, Header: h})
	return s, nil
}

// Header returns the format this session plays
func (s *Session) Header() scream.Header {
	return s.header
}

// Push queues one frame. A full buffer drops the frame and returns jitter.ErrFull.
func (s *Session) Push(frame audio.Frame) error {
	if err := s.prod.Push(frame); err != nil {
		s.overflows.Add(1)
		if !s.overflowing {
			s.overflowing = true
			s.observer(Event{Kind: EventOverflow, Header: s.header, Available: s.prod.Len()})
		}
		return err
	}
	s.overflowing = false
	s.pushed.Add(1)
	return nil
}

// PushPacket decodes every whole frame of a packet payload and queues it.
// It returns the number of frames queued and dropped.
func (s *Session) PushPacket(payload []byte) (queued, dropped int) {
	scream.ForEachFrame(s.header, payload, func(frame audio.Frame) {
		if s.Push(frame) != nil {
			dropped++
			return
		}
		queued++
	})
	return queued, dropped
}

// Close stops the device stream, then the event goroutine. Buffered frames are
// discarded. Close is idempotent; reason is reported once.
func (s *Session) Close(reason string) error {
	s.closeOnce.Do(func() {
		// The stream must be stopped before the buffer is released
		s.closeErr = s.stream.Close()
		close(s.done)
		s.wg.Wait()
		s.observer(Event{Kind: EventSessionStopped, Header: s.header, Reason: reason})
	})
	return s.closeErr
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		Header:      s.header,
		Mode:        s.engine.Mode(),
		Buffered:    s.engine.Buffered(),
		Capacity:    s.prod.Cap(),
		Pushed:      s.pushed.Load(),
		Overflows:   s.overflows.Load(),
		StartedAt:   s.started,
		EngineStats: s.engine.Stats(),
	}
}

// pumpEvents forwards engine events to the observer off the device callback
func (s *Session) pumpEvents() {
	defer s.wg.Done()

	events := s.engine.Events()
	for {
		select {
		case ev := <-events:
			ev.Header = s.header
			s.observer(ev)
		case <-s.done:
			for {
				select {
				case ev := <-events:
					ev.Header = s.header
					s.observer(ev)
				default:
					return
				}
			}
		}
	}
}
