// ABOUTME: Tests for playback session lifecycle
// ABOUTME: Uses a fake output to check open, push, fill and close behavior
package playback

import (
	"errors"
	"sync"
	"testing"

	"github.com/screamsink/screamsink/pkg/audio"
	"github.com/screamsink/screamsink/pkg/audio/output"
	"github.com/screamsink/screamsink/pkg/jitter"
	"github.com/screamsink/screamsink/pkg/scream"
)

type fakeStream struct {
	filler   output.Filler
	startErr error

	mu      sync.Mutex
	started bool
	closes  int
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

type fakeOutput struct {
	openErr  error
	startErr error
	configs  []output.StreamConfig
	stream   *fakeStream
}

func (o *fakeOutput) Name() string { return "fake" }

func (o *fakeOutput) Open(config output.StreamConfig, src output.Filler) (output.Stream, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.configs = append(o.configs, config)
	o.stream = &fakeStream{filler: src, startErr: o.startErr}
	return o.stream, nil
}

func (o *fakeOutput) Close() error { return nil }

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func stereo16Header(t *testing.T) scream.Header {
	t.Helper()
	h, err := scream.ParseHeader([]byte{0x01, 16, 2, 0x03, 0x00}, 2)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	return h
}

func stereo16Payload(frames int) []byte {
	payload := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		// left = 16384 (0.5), right = -16384 (-0.5)
		payload[i*4+0] = 0x00
		payload[i*4+1] = 0x40
		payload[i*4+2] = 0x00
		payload[i*4+3] = 0xC0
	}
	return payload
}

func TestSessionLifecycle(t *testing.T) {
	out := &fakeOutput{}
	log := &eventLog{}
	h := stereo16Header(t)

	s, err := NewSession(out, h, Config{TargetFrames: 4}, log.observe)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if len(out.configs) != 1 || out.configs[0].SampleRate != 48000 || out.configs[0].Channels != 2 {
		t.Fatalf("unexpected stream config: %+v", out.configs)
	}
	if !out.stream.started {
		t.Error("expected stream to be started")
	}
	if s.Header() != h {
		t.Errorf("expected header %s, got %s", h, s.Header())
	}
	if kinds := log.kinds(); len(kinds) != 1 || kinds[0] != EventSessionStarted {
		t.Fatalf("expected session_started, got %v", kinds)
	}

	queued, dropped := s.PushPacket(append(stereo16Payload(8), 0x01))
	if queued != 8 || dropped != 0 {
		t.Errorf("expected 8 queued 0 dropped, got %d/%d", queued, dropped)
	}

	frames := make([]audio.Frame, 2)
	out.stream.filler.Fill(frames)
	if frames[0].Samples[0] != 0.5 || frames[0].Samples[1] != -0.5 || frames[0].Channels != 2 {
		t.Errorf("unexpected first frame: %+v", frames[0])
	}

	stats := s.Stats()
	if stats.Pushed != 8 || stats.Played != 2 || stats.Buffered != 6 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Capacity != 40 {
		t.Errorf("expected capacity 40, got %d", stats.Capacity)
	}

	if err := s.Close("no output"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close("again"); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if out.stream.closes != 1 {
		t.Errorf("expected stream closed once, got %d", out.stream.closes)
	}

	if log.count(EventSessionStopped) != 1 {
		t.Fatalf("expected one session_stopped, got %v", log.kinds())
	}
	if log.count(EventModeChanged) == 0 {
		t.Errorf("expected mode change to be forwarded, got %v", log.kinds())
	}

	log.mu.Lock()
	last := log.events[len(log.events)-1]
	log.mu.Unlock()
	if last.Kind != EventSessionStopped || last.Reason != "no output" || last.Header != h {
		t.Errorf("unexpected final event: %+v", last)
	}
}

func TestSessionOverflow(t *testing.T) {
	out := &fakeOutput{}
	log := &eventLog{}

	s, err := NewSession(out, stereo16Header(t), Config{TargetFrames: 1, Capacity: 2}, log.observe)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close("test done")

	frame := audio.Silence(2)
	var fullErrs int
	for i := 0; i < 4; i++ {
		if err := s.Push(frame); errors.Is(err, jitter.ErrFull) {
			fullErrs++
		}
	}
	if fullErrs != 2 {
		t.Errorf("expected 2 full errors, got %d", fullErrs)
	}

	stats := s.Stats()
	if stats.Pushed != 2 || stats.Overflows != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if log.count(EventOverflow) != 1 {
		t.Errorf("expected one overflow event per burst, got %v", log.kinds())
	}

	queued, dropped := s.PushPacket(stereo16Payload(3))
	if queued != 0 || dropped != 3 {
		t.Errorf("expected 0 queued 3 dropped, got %d/%d", queued, dropped)
	}
}

func TestSessionInvalidHeader(t *testing.T) {
	out := &fakeOutput{}
	h, err := scream.ParseHeader([]byte{0x00, 16, 2, 0x03, 0x00}, 2)
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewSession(out, h, Config{}, nil)
	if !errors.Is(err, scream.ErrZeroSampleRate) {
		t.Errorf("expected ErrZeroSampleRate, got %v", err)
	}
	if len(out.configs) != 0 {
		t.Error("expected no stream to be opened")
	}
}

func TestSessionOpenFailure(t *testing.T) {
	openErr := errors.New("device busy")
	log := &eventLog{}

	_, err := NewSession(&fakeOutput{openErr: openErr}, stereo16Header(t), Config{}, log.observe)
	if !errors.Is(err, openErr) {
		t.Errorf("expected open error, got %v", err)
	}
	if kinds := log.kinds(); len(kinds) != 0 {
		t.Errorf("expected no events, got %v", kinds)
	}
}

func TestSessionStartFailure(t *testing.T) {
	startErr := errors.New("no device")
	out := &fakeOutput{startErr: startErr}

	_, err := NewSession(out, stereo16Header(t), Config{}, nil)
	if !errors.Is(err, startErr) {
		t.Errorf("expected start error, got %v", err)
	}
	if out.stream.closes != 1 {
		t.Errorf("expected stream to be closed after failed start, got %d closes", out.stream.closes)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	if c.TargetFrames != 1024 || c.Capacity != 10240 || c.OverrunLimit != 9216 || c.EventBuffer != 64 {
		t.Errorf("unexpected defaults: %+v", c)
	}

	c = Config{TargetFrames: 10, OverrunLimit: -1}.WithDefaults()
	if c.Capacity != 100 || c.OverrunLimit != 0 {
		t.Errorf("unexpected config: %+v", c)
	}
}
