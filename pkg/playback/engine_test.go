// ABOUTME: Tests for the rate adaptation engine
// ABOUTME: Drives Fill directly against a jitter buffer and checks emitted frames and events
package playback

import (
	"testing"

	"github.com/screamsink/screamsink/pkg/audio"
	"github.com/screamsink/screamsink/pkg/jitter"
)

func testFrame(v float32) audio.Frame {
	f := audio.Frame{Channels: 1}
	f.Samples[0] = v
	return f
}

func newTestEngine(t *testing.T, capacity int, config EngineConfig, values ...float32) (*Engine, *jitter.Producer[audio.Frame]) {
	t.Helper()
	prod, cons := jitter.New[audio.Frame](capacity)
	for _, v := range values {
		if err := prod.Push(testFrame(v)); err != nil {
			t.Fatalf("push %v: %v", v, err)
		}
	}
	return NewEngine(cons, config, 1), prod
}

func samples(frames []audio.Frame) []float32 {
	out := make([]float32, len(frames))
	for i, f := range frames {
		out[i] = f.Samples[0]
	}
	return out
}

func drainEvents(e *Engine) []Event {
	var events []Event
	for {
		select {
		case ev := <-e.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestEngineStoppedHoldsSilence(t *testing.T) {
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4}, 1, 2, 3)

	out := make([]audio.Frame, 4)
	e.Fill(out)

	for i, f := range out {
		if f.Samples[0] != 0 || f.Channels != 1 {
			t.Errorf("frame %d: expected silence, got %+v", i, f)
		}
	}
	if e.Mode() != Stopped {
		t.Errorf("expected Stopped, got %s", e.Mode())
	}
	if e.Buffered() != 3 {
		t.Errorf("expected buffer untouched, got %d frames", e.Buffered())
	}
	if e.Stats().Played != 4 {
		t.Errorf("expected 4 played frames, got %d", e.Stats().Played)
	}
}

func TestEngineRunsDownBuffer(t *testing.T) {
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4}, 1, 2, 3, 4, 5)

	// Callbacks no larger than the target keep requested at 4
	first := make([]audio.Frame, 4)
	second := make([]audio.Frame, 4)
	e.Fill(first)
	e.Fill(second)

	want := []float32{1, 2, 3, 4, 5, 5, 5, 5}
	got := append(samples(first), samples(second)...)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if e.Mode() != Stopped {
		t.Errorf("expected Stopped after draining, got %s", e.Mode())
	}

	var modes []OutputMode
	for _, ev := range drainEvents(e) {
		if ev.Kind == EventModeChanged {
			modes = append(modes, ev.Mode)
		}
	}
	wantModes := []OutputMode{ChuggingAlong, PlaySlower, Stopped}
	if len(modes) != len(wantModes) {
		t.Fatalf("expected mode changes %v, got %v", wantModes, modes)
	}
	for i := range wantModes {
		if modes[i] != wantModes[i] {
			t.Errorf("mode change %d: expected %s, got %s", i, wantModes[i], modes[i])
		}
	}
	if e.Stats().ModeChanges != 3 {
		t.Errorf("expected 3 mode changes, got %d", e.Stats().ModeChanges)
	}
}

func TestEngineRequestedUsesCallbackSize(t *testing.T) {
	// 6 frames exceed the target of 4 but not a callback of 8
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4}, 1, 2, 3, 4, 5, 6)

	out := make([]audio.Frame, 8)
	e.Fill(out)

	if e.Buffered() != 6 {
		t.Errorf("expected engine to stay stopped, buffered %d", e.Buffered())
	}
	for _, ev := range drainEvents(e) {
		if ev.Kind == EventModeChanged {
			t.Errorf("unexpected mode change: %s", ev)
		}
	}
}

func TestEnginePlaySlowerAlternatesInFill(t *testing.T) {
	// 3 of 100 requested is below the slower threshold from the first frame
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 100}, 1, 2, 3)

	out := make([]audio.Frame, 4)
	e.Fill(out)

	if e.Mode() != PlaySlower {
		t.Fatalf("expected PlaySlower, got %s", e.Mode())
	}
	want := []float32{1, 1, 2, 2}
	got := samples(out)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if e.Buffered() != 1 {
		t.Errorf("expected 1 frame left, got %d", e.Buffered())
	}
}

func TestEnginePlaySlowerParity(t *testing.T) {
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4}, 1, 2)
	e.last = testFrame(9)

	e.iteration = 2
	if got := e.emit(PlaySlower); got.Samples[0] != 9 {
		t.Errorf("even iteration: expected repeat of last frame, got %v", got.Samples[0])
	}
	if e.Buffered() != 2 {
		t.Errorf("even iteration must not consume, buffered %d", e.Buffered())
	}

	e.iteration = 3
	if got := e.emit(PlaySlower); got.Samples[0] != 1 {
		t.Errorf("odd iteration: expected next frame, got %v", got.Samples[0])
	}
	if e.Buffered() != 1 {
		t.Errorf("odd iteration must consume one frame, buffered %d", e.Buffered())
	}
}

func TestEnginePlayFasterSkips(t *testing.T) {
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4}, 1, 2, 3)

	if got := e.emit(PlayFaster); got.Samples[0] != 2 {
		t.Errorf("expected second frame, got %v", got.Samples[0])
	}
	if got := e.emit(PlayFaster); got.Samples[0] != 3 {
		t.Errorf("expected lone remaining frame, got %v", got.Samples[0])
	}
	if e.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d", e.Buffered())
	}
}

func TestEngineUnderrunRepeatsLastFrame(t *testing.T) {
	e, prod := newTestEngine(t, 16, EngineConfig{TargetFrames: 4})
	e.last = testFrame(0.5)

	for i := 0; i < 3; i++ {
		if got := e.pop(); got.Samples[0] != 0.5 {
			t.Errorf("pop %d: expected last frame, got %v", i, got.Samples[0])
		}
	}

	if e.Stats().Underruns != 3 {
		t.Errorf("expected 3 underruns, got %d", e.Stats().Underruns)
	}
	events := drainEvents(e)
	if len(events) != 1 || events[0].Kind != EventUnderrun {
		t.Fatalf("expected one underrun event per run, got %v", events)
	}

	if err := prod.Push(testFrame(1)); err != nil {
		t.Fatal(err)
	}
	if got := e.pop(); got.Samples[0] != 1 {
		t.Errorf("expected pushed frame, got %v", got.Samples[0])
	}
	e.pop()
	if events := drainEvents(e); len(events) != 1 {
		t.Errorf("expected a new underrun event after recovery, got %d", len(events))
	}
}

func TestEngineOverrunDiscard(t *testing.T) {
	values := make([]float32, 20)
	for i := range values {
		values[i] = float32(i + 1)
	}
	e, _ := newTestEngine(t, 64, EngineConfig{TargetFrames: 4, OverrunLimit: 10}, values...)

	out := make([]audio.Frame, 1)
	e.Fill(out)

	// 20 buffered > 10: keep 4*2 frames, drop 12
	if out[0].Samples[0] != 13 {
		t.Errorf("expected frame 13 after discard, got %v", out[0].Samples[0])
	}
	if e.Stats().Discarded != 12 {
		t.Errorf("expected 12 discarded frames, got %d", e.Stats().Discarded)
	}

	events := drainEvents(e)
	if len(events) == 0 || events[0].Kind != EventOverrunDiscard {
		t.Fatalf("expected overrun discard event first, got %v", events)
	}
	if events[0].Count != 12 || events[0].Available != 20 {
		t.Errorf("unexpected discard event: %+v", events[0])
	}
}

func TestEngineOverrunDisabled(t *testing.T) {
	values := make([]float32, 20)
	e, _ := newTestEngine(t, 64, EngineConfig{TargetFrames: 4}, values...)

	e.Fill(make([]audio.Frame, 1))

	if e.Stats().Discarded != 0 {
		t.Errorf("expected no discard, got %d", e.Stats().Discarded)
	}
	if e.Buffered() != 19 {
		t.Errorf("expected 19 buffered frames, got %d", e.Buffered())
	}
}

func TestEngineDropsEventsWhenFull(t *testing.T) {
	e, _ := newTestEngine(t, 16, EngineConfig{TargetFrames: 4, EventBuffer: 1}, 1, 2, 3, 4, 5)

	// Three mode changes: ChuggingAlong, PlaySlower, Stopped
	e.Fill(make([]audio.Frame, 4))
	e.Fill(make([]audio.Frame, 4))

	if got := len(drainEvents(e)); got != 1 {
		t.Errorf("expected 1 queued event, got %d", got)
	}
	if e.Stats().DroppedEvents != 2 {
		t.Errorf("expected 2 dropped events, got %d", e.Stats().DroppedEvents)
	}
}

func TestEventString(t *testing.T) {
	ev := Event{Kind: EventModeChanged, PrevMode: Stopped, Mode: ChuggingAlong, Available: 1100, Requested: 1024}
	want := "Output mode changed: Stopped -> ChuggingAlong, samples: 1100, buffer_size: 1024"
	if ev.String() != want {
		t.Errorf("expected %q, got %q", want, ev.String())
	}
	if EventKind(42).String() != "event(42)" {
		t.Errorf("unexpected kind name: %s", EventKind(42))
	}
}
