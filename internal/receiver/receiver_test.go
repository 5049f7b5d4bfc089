// ABOUTME: Tests for the receiver ingestion loop
// ABOUTME: Drives packets through a fake output and a loopback UDP socket
package receiver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/screamsink/screamsink/pkg/audio/output"
	"github.com/screamsink/screamsink/pkg/playback"
	"github.com/screamsink/screamsink/pkg/scream"
)

type fakeStream struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Start() error { return nil }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeOutput struct {
	mu      sync.Mutex
	openErr error
	configs []output.StreamConfig
	streams []*fakeStream
}

func (o *fakeOutput) Name() string { return "fake" }

func (o *fakeOutput) Open(config output.StreamConfig, src output.Filler) (output.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	s := &fakeStream{}
	o.configs = append(o.configs, config)
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *fakeOutput) Close() error { return nil }

func (o *fakeOutput) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.streams)
}

func (o *fakeOutput) stream(i int) *fakeStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streams[i]
}

func packet(t *testing.T, rate, depth, frames int) []byte {
	t.Helper()
	h, err := scream.EncodeHeader(rate, depth, 2)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	return append(h[:], make([]byte, frames*2*depth/8)...)
}

func newTestReceiver(out *fakeOutput) *Receiver {
	return New(nil, Config{
		Output:  out,
		Session: playback.Config{TargetFrames: 16},
	})
}

func TestReceiverStartsAndReusesSession(t *testing.T) {
	out := &fakeOutput{}
	r := newTestReceiver(out)
	defer r.closeSession("test done")

	r.handlePacket(packet(t, 48000, 16, 8))
	r.handlePacket(packet(t, 48000, 16, 8))

	if out.opened() != 1 {
		t.Fatalf("expected one stream, got %d", out.opened())
	}
	if out.configs[0].SampleRate != 48000 || out.configs[0].Channels != 2 {
		t.Errorf("unexpected stream config: %+v", out.configs[0])
	}

	stats := r.Stats()
	if !stats.Active || stats.Sessions != 1 || stats.Packets != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Session.Pushed != 16 || stats.Session.Buffered != 16 {
		t.Errorf("expected 16 queued frames, got pushed=%d buffered=%d", stats.Session.Pushed, stats.Session.Buffered)
	}
	if stats.LastPacket.IsZero() {
		t.Error("expected last packet time to be set")
	}
}

func TestReceiverFormatChangeReplacesSession(t *testing.T) {
	out := &fakeOutput{}
	r := newTestReceiver(out)
	defer r.closeSession("test done")

	r.handlePacket(packet(t, 48000, 16, 8))
	r.handlePacket(packet(t, 44100, 24, 4))

	if out.opened() != 2 {
		t.Fatalf("expected two streams, got %d", out.opened())
	}
	if !out.stream(0).isClosed() {
		t.Error("expected first stream to be closed")
	}
	if out.stream(1).isClosed() {
		t.Error("expected second stream to be open")
	}
	if out.configs[1].SampleRate != 44100 {
		t.Errorf("expected 44100Hz stream, got %d", out.configs[1].SampleRate)
	}

	stats := r.Stats()
	if stats.Session.Header.BitDepth != 24 {
		t.Errorf("expected 24-bit session, got %s", stats.Session.Header)
	}
	if stats.Session.Buffered != 4 {
		t.Errorf("expected old frames discarded, buffered %d", stats.Session.Buffered)
	}
}

func TestReceiverTimeoutStopsSession(t *testing.T) {
	out := &fakeOutput{}
	r := newTestReceiver(out)
	defer r.closeSession("test done")

	r.handleTimeout()
	if r.Stats().Timeouts != 0 {
		t.Error("timeout without a session must not count")
	}

	r.handlePacket(packet(t, 48000, 16, 8))
	r.handleTimeout()

	if !out.stream(0).isClosed() {
		t.Error("expected stream to be closed on timeout")
	}
	stats := r.Stats()
	if stats.Active || stats.Timeouts != 1 {
		t.Errorf("unexpected stats after timeout: %+v", stats)
	}

	r.handlePacket(packet(t, 48000, 16, 2))
	stats = r.Stats()
	if out.opened() != 2 || stats.Sessions != 2 {
		t.Fatalf("expected a fresh session, got %d streams", out.opened())
	}
	if stats.Session.Buffered != 2 {
		t.Errorf("expected only new frames, buffered %d", stats.Session.Buffered)
	}
}

func TestReceiverDropsMalformedPackets(t *testing.T) {
	out := &fakeOutput{}
	r := newTestReceiver(out)

	r.handlePacket([]byte{0x01, 16})
	r.handlePacket([]byte{0x00, 16, 2, 3, 0, 0, 0, 0, 0})
	r.handlePacket([]byte{0x01, 4, 2, 3, 0})

	stats := r.Stats()
	if stats.Malformed != 3 || stats.Packets != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if out.opened() != 0 {
		t.Errorf("expected no stream, got %d", out.opened())
	}
}

func TestReceiverRetriesAfterSessionFailure(t *testing.T) {
	out := &fakeOutput{openErr: errors.New("device busy")}
	r := newTestReceiver(out)
	defer r.closeSession("test done")

	r.handlePacket(packet(t, 48000, 16, 8))
	r.handlePacket(packet(t, 48000, 16, 8))

	stats := r.Stats()
	if stats.Active || stats.SessionFailures != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	out.mu.Lock()
	out.openErr = nil
	out.mu.Unlock()

	r.handlePacket(packet(t, 48000, 16, 8))
	if !r.Stats().Active {
		t.Error("expected session after device recovered")
	}
}

func TestReceiverForwardsEvents(t *testing.T) {
	out := &fakeOutput{}
	var mu sync.Mutex
	var kinds []playback.EventKind

	r := New(nil, Config{
		Output: out,
		OnEvent: func(ev playback.Event) {
			mu.Lock()
			kinds = append(kinds, ev.Kind)
			mu.Unlock()
		},
	})

	r.handlePacket(packet(t, 48000, 16, 8))
	r.handleTimeout()

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 || kinds[0] != playback.EventSessionStarted || kinds[1] != playback.EventSessionStopped {
		t.Errorf("unexpected events: %v", kinds)
	}
}

func TestReceiverRun(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback UDP unavailable: %v", err)
	}

	out := &fakeOutput{}
	r := New(conn, Config{Output: out, ReadTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	sender, err := net.Dial("udp4", r.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sender.Close()

	if _, err := sender.Write(packet(t, 48000, 16, 8)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, "session start", func() bool { return r.Stats().Active })
	waitFor(t, "silence timeout", func() bool { return !r.Stats().Active })

	if !out.stream(0).isClosed() {
		t.Error("expected stream closed after silence")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
