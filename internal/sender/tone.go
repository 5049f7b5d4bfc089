// ABOUTME: Test tone generator for the sender
// ABOUTME: Generates a sine wave on every channel at a configurable rate
package sender

import (
	"fmt"
	"math"
)

// ToneConfig configures the generated tone
type ToneConfig struct {
	Frequency  float64 // default: 440Hz
	SampleRate int     // default: 48000
	Channels   int     // default: 2
	Volume     float64 // 0..1, default: 0.5
}

// ToneSource generates a sine test tone
type ToneSource struct {
	config      ToneConfig
	sampleIndex uint64
}

// NewToneSource creates a new test tone generator
func NewToneSource(config ToneConfig) *ToneSource {
	if config.Frequency <= 0 {
		config.Frequency = 440.0 // A4 note
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}
	if config.Channels <= 0 {
		config.Channels = 2
	}
	if config.Volume <= 0 || config.Volume > 1 {
		config.Volume = 0.5
	}
	return &ToneSource{config: config}
}

func (s *ToneSource) Read(samples []int32) (int, error) {
	channels := s.config.Channels
	numFrames := len(samples) / channels
	amplitude := s.config.Volume * 8388607.0

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.config.SampleRate)
		value := int32(math.Sin(2*math.Pi*s.config.Frequency*t) * amplitude)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = value
		}
	}

	s.sampleIndex += uint64(numFrames)
	return numFrames * channels, nil
}

func (s *ToneSource) SampleRate() int { return s.config.SampleRate }
func (s *ToneSource) Channels() int   { return s.config.Channels }
func (s *ToneSource) Title() string {
	return fmt.Sprintf("Test Tone (%.0fHz)", s.config.Frequency)
}
func (s *ToneSource) Close() error { return nil }
