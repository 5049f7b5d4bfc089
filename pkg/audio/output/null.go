// ABOUTME: Null audio output that consumes frames without a device
// ABOUTME: Pulls frames at the stream's sample rate on a ticker, for headless receivers
package output

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/screamsink/screamsink/pkg/audio"
)

const defaultNullPeriodFrames = 480

// Null output implementation that discards audio
type Null struct{}

// NewNull creates a new Null output
func NewNull() Output {
	return &Null{}
}

// Name identifies the backend
func (n *Null) Name() string { return "null" }

// Open prepares a stream that discards frames in real time
func (n *Null) Open(config StreamConfig, src Filler) (Stream, error) {
	period := config.PeriodFrames
	if period <= 0 {
		period = defaultNullPeriodFrames
	}
	rate := config.SampleRate
	if rate <= 0 {
		rate = 48000
	}

	log.Printf("Audio output opened: %dHz, %d channels (null)", config.SampleRate, config.Channels)

	return &nullStream{
		src:      src,
		frames:   make([]audio.Frame, period),
		interval: time.Duration(period) * time.Second / time.Duration(rate),
	}, nil
}

// Close releases resources
func (n *Null) Close() error { return nil }

type nullStream struct {
	src      Filler
	frames   []audio.Frame
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

func (s *nullStream) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// run pulls one period per tick
func (s *nullStream) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.src.Fill(s.frames)
		}
	}
}

func (s *nullStream) Close() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
	return nil
}
