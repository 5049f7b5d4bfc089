//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback output using PortAudio
package output

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/screamsink/screamsink/pkg/audio"
)

// PortAudio output implementation
type PortAudio struct {
	initialized bool
	mu          sync.Mutex
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name identifies the backend
func (p *PortAudio) Name() string { return "portaudio/default" }

// Open opens a float32 stream on the default output device
func (p *PortAudio) Open(config StreamConfig, src Filler) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		p.initialized = true
	}

	s := &portAudioStream{
		src:      src,
		channels: config.Channels,
		scratch:  make([]audio.Frame, scratchFrames),
	}

	stream, err := portaudio.OpenDefaultStream(0, config.Channels, float64(config.SampleRate), config.PeriodFrames, s.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	s.stream = stream

	return s, nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream   *portaudio.Stream
	src      Filler
	channels int
	scratch  []audio.Frame
	once     sync.Once
}

func (s *portAudioStream) callback(out []float32) {
	n := len(out) / s.channels
	fillChunked(s.src, s.scratch, n, func(frames []audio.Frame, offset int) {
		i := offset * s.channels
		for _, frame := range frames {
			for ch := 0; ch < s.channels; ch++ {
				out[i] = frame.Samples[ch]
				i++
			}
		}
	})
}

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

func (s *portAudioStream) Close() error {
	var err error
	s.once.Do(func() {
		if err = s.stream.Stop(); err != nil {
			return
		}
		err = s.stream.Close()
	})
	return err
}
