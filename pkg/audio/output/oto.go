// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams float32 PCM through an oto player that pulls frames from the session engine
package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/screamsink/screamsink/pkg/audio"
)

// ErrFormatLocked is returned when oto is asked for a second sample rate or
// channel count; oto allows a single context per process
var ErrFormatLocked = errors.New("output: oto context already opened with a different format")

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	sampleRate int
	channels   int
	mu         sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Name identifies the backend
func (o *Oto) Name() string { return "oto" }

// Open creates a player for one stream
func (o *Oto) Open(config StreamConfig, src Filler) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil && (o.sampleRate != config.SampleRate || o.channels != config.Channels) {
		return nil, fmt.Errorf("%w (%dHz %dch -> %dHz %dch)",
			ErrFormatLocked, o.sampleRate, o.channels, config.SampleRate, config.Channels)
	}

	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: config.Channels,
			Format:       oto.FormatFloat32LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = config.SampleRate
		o.channels = config.Channels
	} else if err := o.otoCtx.Resume(); err != nil {
		return nil, fmt.Errorf("failed to resume oto context: %w", err)
	}

	reader := &otoReader{
		src:      src,
		channels: config.Channels,
		scratch:  make([]audio.Frame, scratchFrames),
	}
	player := o.otoCtx.NewPlayer(reader)
	if config.PeriodFrames > 0 {
		player.SetBufferSize(config.PeriodFrames * config.Channels * FormatF32.BytesPerSample())
	}

	log.Printf("Audio output opened: %dHz, %d channels (oto/F32)", config.SampleRate, config.Channels)

	return &otoStream{player: player, reader: reader}, nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

type otoStream struct {
	player *oto.Player
	reader *otoReader
	once   sync.Once
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Close() error {
	var err error
	s.once.Do(func() {
		s.reader.mu.Lock()
		s.reader.closed.Store(true)
		s.reader.mu.Unlock()
		s.player.Pause()
		err = s.player.Close()
	})
	return err
}

// otoReader adapts the pull-based Filler to the io.Reader oto consumes
type otoReader struct {
	src      Filler
	channels int
	scratch  []audio.Frame
	closed   atomic.Bool

	// mu is held for the duration of a Read so Close can wait for it
	mu sync.Mutex
}

func (r *otoReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return 0, io.EOF
	}

	frameSize := r.channels * FormatF32.BytesPerSample()
	n := len(p) / frameSize
	if n == 0 {
		clear(p)
		return len(p), nil
	}

	fillChunked(r.src, r.scratch, n, func(frames []audio.Frame, offset int) {
		EncodeFrames(p[offset*frameSize:], frames, r.channels, FormatF32)
	})
	return n * frameSize, nil
}
